package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qoracle/internal/ir"
)

// GoldenSnapshot is the part of a result that is stored in golden files.
// Everything in it is deterministic for the fixture data set.
type GoldenSnapshot struct {
	Name    string
	Pass    bool
	Rows    []Row
	Entries int
	Value   *int64
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical, which only
// handles IR types and primitives.
func (s *GoldenSnapshot) toCanonicalMap() map[string]any {
	rows := make([]any, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = map[string]any{
			"key":         r.Key,
			"fingerprint": r.Fingerprint,
		}
	}

	m := map[string]any{
		"name":    s.Name,
		"pass":    s.Pass,
		"rows":    rows,
		"entries": s.Entries,
	}
	if s.Value != nil {
		m["value"] = *s.Value
	}
	return m
}

// RunWithGolden executes a scenario and compares the result against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func (h *Harness) RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := GoldenSnapshot{
		Name:    name,
		Pass:    result.Pass,
		Rows:    result.Rows,
		Entries: result.Entries,
		Value:   result.Value,
	}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
