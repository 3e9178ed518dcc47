package harness

// Row is one live result row.
type Row struct {
	// Key identifies the entity, e.g. "customers/ALFKI".
	Key string `json:"key"`

	// Fingerprint hashes the row's column values.
	Fingerprint string `json:"fingerprint"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates overall success: the oracle check and every expect
	// clause passed.
	Pass bool `json:"pass"`

	// Rows are the live rows in result order, or in key order for an
	// unordered scenario. Empty for aggregates.
	Rows []Row `json:"rows"`

	// Entries is the number of entities the live context tracked.
	Entries int `json:"entries"`

	// Value is the live aggregate value; nil for NULL or row scenarios.
	Value *int64 `json:"value,omitempty"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Rows:   []Row{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
