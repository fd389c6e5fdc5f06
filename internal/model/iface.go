package model

import "context"

// StoreTarget names the database and collection a document is inserted into.
type StoreTarget struct {
	Database   string
	Collection string
}

func (t StoreTarget) String() string {
	return t.Database + ":" + t.Collection
}

// DocumentInserter provides the secondary-store insert operation.
type DocumentInserter interface {
	InsertDocument(ctx context.Context, target StoreTarget, doc Document) error
}

// DocumentArchiver appends documents to a local archive.
type DocumentArchiver interface {
	ArchiveDocument(ctx context.Context, doc Document) error
}

// DigestSender delivers an accumulated email digest as one message.
type DigestSender interface {
	Send(ctx context.Context, subject string, to []string, body string) error
}
