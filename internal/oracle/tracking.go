package oracle

import (
	"github.com/roach88/qoracle/internal/query"
)

// checkTracking compares the number of entities live tracks with expected.
// Detached entries do not count.
func checkTracking(live Context, expected int) error {
	var tracked []string
	for _, e := range live.Entries() {
		if e.State != query.Detached {
			tracked = append(tracked, e.Key.String())
		}
	}
	if len(tracked) == expected {
		return nil
	}
	return &TrackingError{
		ContextID: live.ID(),
		Expected:  expected,
		Actual:    len(tracked),
		Sample:    tracked[:min(len(tracked), 10)],
	}
}
