package mongostore

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// DefaultTimeout bounds server selection and connection setup.
const DefaultTimeout = 10 * time.Second

// Config holds connection settings that do not come from the server file.
type Config struct {
	Timeout     time.Duration
	TLSInsecure bool
	AppName     string
}

// ClientOptions maps a server configuration onto driver client options.
// TLS material is passed through URI options so the driver loads the files
// and decrypts the client key itself.
func ClientOptions(server model.ServerConfig, cfg Config) (*options.ClientOptions, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := options.Client().
		ApplyURI(connectionURI(server, cfg)).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	if server.IsReplicaSet() {
		opts.SetReplicaSet(server.RepSet)
	} else {
		opts.SetDirect(server.DirectConnect)
	}

	if server.Auth {
		cred := options.Credential{
			Username:   server.User,
			Password:   server.Japd,
			AuthSource: server.AuthSource(),
		}
		if server.AuthMech != "" {
			cred.AuthMechanism = server.AuthMech
		}
		opts.SetAuth(cred)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func connectionURI(server model.ServerConfig, cfg Config) string {
	q := url.Values{}
	if server.UsesTLS() || cfg.TLSInsecure {
		q.Set("tls", "true")
	}
	if cfg.TLSInsecure {
		q.Set("tlsInsecure", "true")
	}
	if ca := server.CAFile(); ca != "" {
		q.Set("tlsCAFile", ca)
	}
	if key := server.CertKeyFile(); key != "" {
		q.Set("tlsCertificateKeyFile", key)
	}
	if phrase := server.CertKeyPassword(); phrase != "" {
		q.Set("tlsCertificateKeyFilePassword", phrase)
	}

	uri := "mongodb://" + strings.Join(server.Hosts(), ",") + "/"
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}
	return uri
}
