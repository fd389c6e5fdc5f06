package statsource

import "context"

// Source is the contract between a statistics producer and the poll driver.
type Source interface {
	Read(ctx context.Context) ([]byte, error) // full output of one run
	Name() string                             // "mongostat", "static"
}
