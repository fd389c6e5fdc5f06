// Package mongostore talks to MongoDB through the official driver: it checks
// that the monitored server is reachable and inserts Documents into the
// secondary store.
package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Client wraps a connected driver client.
type Client struct {
	client  *mongo.Client
	name    string
	timeout time.Duration
}

// Connect creates a client for server. The driver connects lazily, so a
// successful Connect does not prove the server is reachable; use Ping.
func Connect(ctx context.Context, server model.ServerConfig, cfg Config) (*Client, error) {
	opts, err := ClientOptions(server, cfg)
	if err != nil {
		return nil, fmt.Errorf("mongostore: options for %s: %w", server.Name, err)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect %s: %w", server.Name, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{client: client, name: server.Name, timeout: timeout}, nil
}

// Ping runs a round trip against the server, preferring the primary but
// accepting a secondary.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Ping(ctx, readpref.PrimaryPreferred()); err != nil {
		return fmt.Errorf("mongostore: ping %s: %w", c.name, err)
	}
	return nil
}

// InsertDocument inserts doc into target.
func (c *Client) InsertDocument(ctx context.Context, target model.StoreTarget, doc model.Document) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	coll := c.client.Database(target.Database).Collection(target.Collection)
	res, err := coll.InsertOne(ctx, ToBSON(doc))
	if err != nil {
		return fmt.Errorf("mongostore: insert into %s: %w", target, err)
	}
	log.Printf("mongostore: inserted %v into %s", res.InsertedID, target)
	return nil
}

// Disconnect closes the client's connections.
func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// ToBSON renders doc with the same field names and order as its JSON form.
// RepSet and RepState are present only for replica set members.
func ToBSON(doc model.Document) bson.D {
	d := bson.D{
		{Key: "Server", Value: doc.Server},
		{Key: "AsOf", Value: doc.AsOf},
	}
	if doc.ReplicaSet != nil {
		d = append(d,
			bson.E{Key: "RepSet", Value: doc.ReplicaSet.Name},
			bson.E{Key: "RepState", Value: doc.ReplicaSet.State},
		)
	}
	stats := bson.M{}
	for k, v := range doc.PerfStats {
		stats[k] = v
	}
	return append(d, bson.E{Key: "PerfStats", Value: stats})
}
