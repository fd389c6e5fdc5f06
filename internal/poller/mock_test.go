package poller

import (
	"context"
	"errors"
	"time"

	"github.com/tinytelemetry/mongoperf/internal/ingest"
	"github.com/tinytelemetry/mongoperf/internal/model"
	"github.com/tinytelemetry/mongoperf/internal/sink"
)

var errMockFailure = errors.New("mock failure")

// MockSource is a statsource.Source with a replaceable Read.
type MockSource struct {
	ReadFn func(ctx context.Context) ([]byte, error)
}

func (m *MockSource) Read(ctx context.Context) ([]byte, error) {
	if m.ReadFn != nil {
		return m.ReadFn(ctx)
	}
	return nil, nil
}

func (m *MockSource) Name() string { return "mock" }

// dispatchCall records one Dispatch invocation.
type dispatchCall struct {
	Doc  model.Document
	Mode sink.FileMode
}

// MockDispatcher records dispatched documents and optionally runs DispatchFn.
type MockDispatcher struct {
	DispatchFn func(ctx context.Context, doc model.Document, state *sink.RunState) []*sink.SinkError
	Calls      []dispatchCall
}

func (m *MockDispatcher) Dispatch(ctx context.Context, doc model.Document, state *sink.RunState) []*sink.SinkError {
	m.Calls = append(m.Calls, dispatchCall{Doc: doc, Mode: state.FileMode()})
	if m.DispatchFn != nil {
		return m.DispatchFn(ctx, doc, state)
	}
	return nil
}

type sentMail struct {
	Subject string
	To      []string
	Body    string
}

// MockSender records digests.
type MockSender struct {
	SendFn func(ctx context.Context, subject string, to []string, body string) error
	Sent   []sentMail
}

func (m *MockSender) Send(ctx context.Context, subject string, to []string, body string) error {
	m.Sent = append(m.Sent, sentMail{Subject: subject, To: to, Body: body})
	if m.SendFn != nil {
		return m.SendFn(ctx, subject, to, body)
	}
	return nil
}

func testProcessor() *ingest.Processor {
	return ingest.NewProcessor(ingest.Enricher{
		Server: "db1",
		Now:    func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})
}

func staticOutput(data string) *MockSource {
	return &MockSource{ReadFn: func(context.Context) ([]byte, error) { return []byte(data), nil }}
}
