package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an expect clause fails.
type AssertionError struct {
	Type     string // Expect clause that failed
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Rows     []Row  // Live rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, row := range e.Rows {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, row.Key)
		}
	}

	return buf.String()
}

// EvaluateExpect checks the expect clause against a result and returns one
// message per failed clause. The tracked entry count and includes are
// asserted by the oracle itself.
func EvaluateExpect(expect ExpectClause, result *Result) []string {
	var errs []string

	if expect.Rows != nil && *expect.Rows != len(result.Rows) {
		errs = append(errs, (&AssertionError{
			Type:     "rows",
			Expected: fmt.Sprintf("%d rows", *expect.Rows),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
			Rows:     result.Rows,
		}).Error())
	}

	if expect.Value != nil {
		switch {
		case result.Value == nil:
			errs = append(errs, (&AssertionError{
				Type:     "value",
				Expected: fmt.Sprintf("%d", *expect.Value),
				Actual:   "NULL",
			}).Error())
		case *result.Value != *expect.Value:
			errs = append(errs, (&AssertionError{
				Type:     "value",
				Expected: fmt.Sprintf("%d", *expect.Value),
				Actual:   fmt.Sprintf("%d", *result.Value),
			}).Error())
		}
	}

	return errs
}
