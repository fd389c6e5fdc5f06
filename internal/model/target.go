package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTarget is returned for store targets not of the form "database:collection".
var ErrInvalidTarget = errors.New("store target must be database:collection")

// ParseStoreTarget parses "database:collection".
func ParseStoreTarget(s string) (StoreTarget, error) {
	db, coll, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || db == "" || coll == "" || strings.Contains(coll, ":") {
		return StoreTarget{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	return StoreTarget{Database: db, Collection: coll}, nil
}
