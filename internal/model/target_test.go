package model

import (
	"errors"
	"testing"
)

func TestParseStoreTarget(t *testing.T) {
	t.Parallel()

	got, err := ParseStoreTarget("sysmon:mongo_perf")
	if err != nil {
		t.Fatalf("ParseStoreTarget: %v", err)
	}
	if got.Database != "sysmon" || got.Collection != "mongo_perf" {
		t.Fatalf("target = %+v", got)
	}
	if got.String() != "sysmon:mongo_perf" {
		t.Fatalf("String = %q", got.String())
	}

	for _, bad := range []string{"", "sysmon", ":coll", "db:", "a:b:c"} {
		if _, err := ParseStoreTarget(bad); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("ParseStoreTarget(%q) error = %v, want ErrInvalidTarget", bad, err)
		}
	}
}
