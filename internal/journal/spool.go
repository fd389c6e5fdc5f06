package journal

import (
	"fmt"
	"log"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Drain re-delivers uncommitted documents through deliver in sequence order,
// committing each one that succeeds. It stops at the first delivery failure
// so that ordering is kept for the next attempt, and returns how many
// documents were delivered.
func (j *Journal) Drain(deliver func(doc *model.Document) error) (int, error) {
	delivered := 0
	err := j.Replay(func(seq uint64, doc *model.Document) error {
		if err := deliver(doc); err != nil {
			return fmt.Errorf("journal: redeliver seq=%d: %w", seq, err)
		}
		if err := j.Commit(seq); err != nil {
			return err
		}
		delivered++
		return nil
	})
	if delivered > 0 {
		log.Printf("journal: redelivered %d spooled documents", delivered)
	}
	return delivered, err
}

// Pending counts uncommitted documents.
func (j *Journal) Pending() (int, error) {
	n := 0
	err := j.Replay(func(uint64, *model.Document) error {
		n++
		return nil
	})
	return n, err
}
