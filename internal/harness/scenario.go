package harness

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/queryir"
)

//go:embed schema.cue
var schemaCUE string

// Scenario is one declarative query check.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Query runs against both the live context and the snapshot.
	Query QuerySpec `yaml:"query"`

	// Baseline replaces Query on the snapshot side. Required when Query is
	// not portable.
	Baseline *QuerySpec `yaml:"baseline,omitempty"`

	// Aggregate reduces Query to one value instead of fetching rows.
	Aggregate *AggregateSpec `yaml:"aggregate,omitempty"`

	// Expect holds the assertions on the live result.
	Expect ExpectClause `yaml:"expect"`
}

// QuerySpec is the YAML form of a queryir.Select.
type QuerySpec struct {
	From       string         `yaml:"from"`
	Where      *PredicateSpec `yaml:"where,omitempty"`
	OrderBy    []OrderSpec    `yaml:"order_by,omitempty"`
	Limit      int            `yaml:"limit,omitempty"`
	Offset     int            `yaml:"offset,omitempty"`
	Distinct   bool           `yaml:"distinct,omitempty"`
	Include    []string       `yaml:"include,omitempty"`
	NoTracking bool           `yaml:"no_tracking,omitempty"`
}

// OrderSpec is one ORDER BY term.
type OrderSpec struct {
	Field string `yaml:"field"`
	Desc  bool   `yaml:"desc,omitempty"`
}

// PredicateSpec is a filter node. Exactly one field must be set.
type PredicateSpec struct {
	Eq      *CompareSpec    `yaml:"eq,omitempty"`
	Ne      *CompareSpec    `yaml:"ne,omitempty"`
	Lt      *CompareSpec    `yaml:"lt,omitempty"`
	Le      *CompareSpec    `yaml:"le,omitempty"`
	Gt      *CompareSpec    `yaml:"gt,omitempty"`
	Ge      *CompareSpec    `yaml:"ge,omitempty"`
	IsNull  string          `yaml:"is_null,omitempty"`
	NotNull string          `yaml:"not_null,omitempty"`
	And     []PredicateSpec `yaml:"and,omitempty"`
	Or      []PredicateSpec `yaml:"or,omitempty"`
	Not     *PredicateSpec  `yaml:"not,omitempty"`
	Raw     *RawSpec        `yaml:"raw,omitempty"`
}

// CompareSpec compares a field with a literal. A null value never matches.
type CompareSpec struct {
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// RawSpec is a provider-specific SQL fragment over the root alias "t".
type RawSpec struct {
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args,omitempty"`
}

// AggregateSpec selects COUNT, SUM, MIN or MAX of a field.
type AggregateSpec struct {
	Func  string `yaml:"func"`
	Field string `yaml:"field,omitempty"`
}

// ExpectClause describes the expected live result. Fields left out are not
// asserted, except the tracked entry count, which defaults to what the
// baseline rows and their includes add up to.
type ExpectClause struct {
	Rows     *int          `yaml:"rows,omitempty"`
	Entries  *int          `yaml:"entries,omitempty"`
	Ordered  bool          `yaml:"ordered,omitempty"`
	Value    *int64        `yaml:"value,omitempty"`
	Includes []IncludeSpec `yaml:"includes,omitempty"`
}

// IncludeSpec is the YAML form of oracle.ExpectedInclude.
type IncludeSpec struct {
	ID         string `yaml:"id"`
	Set        string `yaml:"set"`
	Navigation string `yaml:"navigation"`
	Parent     string `yaml:"parent,omitempty"`
}

// SchemaViolationError is returned when a scenario file does not satisfy
// the embedded CUE schema.
type SchemaViolationError struct {
	Path string
	Err  error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("scenario %s does not match schema: %v", e.Path, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// LoadScenario reads, validates and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or violates the schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario parses scenario YAML. path is only used in errors.
func ParseScenario(path string, data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "exepct:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, &SchemaViolationError{Path: path, Err: err}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario under dir in file name
// order. Scenario names must be unique.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(path); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	slices.Sort(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario name %q used by both %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateSchema unifies the decoded document with #Scenario.
func validateSchema(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return err
	}
	return def.Unify(value).Validate(cue.Concrete(true))
}

// validateScenario checks what the schema cannot: predicate shape, field
// paths and the baseline rule for non-portable queries.
func validateScenario(s *Scenario) error {
	sel, err := s.Query.Select()
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if err := queryir.CheckSchema(sel); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	portable := queryir.Validate(sel)
	if s.Baseline == nil && !portable.IsPortable {
		return fmt.Errorf("query is not portable (%s); add a baseline", strings.Join(portable.Warnings, "; "))
	}
	if s.Baseline != nil {
		base, err := s.Baseline.Select()
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		if base.From != sel.From {
			return fmt.Errorf("baseline selects %s, query selects %s", base.From, sel.From)
		}
		if r := queryir.Validate(base); !r.IsPortable {
			return fmt.Errorf("baseline must be portable: %s", strings.Join(r.Warnings, "; "))
		}
	}

	if s.Expect.Ordered && len(sel.OrderBy) == 0 {
		return errors.New("expect.ordered needs query.order_by")
	}

	if s.Aggregate != nil {
		if err := queryir.CheckAggregate(sel, s.Aggregate.Aggregate()); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		if len(s.Expect.Includes) > 0 || s.Expect.Rows != nil {
			return errors.New("aggregate scenarios assert value, not rows or includes")
		}
	} else if s.Expect.Value != nil {
		return errors.New("expect.value needs an aggregate")
	}
	return nil
}

// Select converts the YAML query to a queryir.Select.
func (q QuerySpec) Select() (queryir.Select, error) {
	sel := queryir.Select{
		From:       q.From,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Distinct:   q.Distinct,
		Includes:   q.Include,
		NoTracking: q.NoTracking,
	}
	for _, o := range q.OrderBy {
		sel.OrderBy = append(sel.OrderBy, queryir.Order{Field: o.Field, Descending: o.Desc})
	}
	if q.Where != nil {
		p, err := q.Where.Predicate()
		if err != nil {
			return queryir.Select{}, fmt.Errorf("where: %w", err)
		}
		sel.Filter = p
	}
	return sel, nil
}

// Predicate converts the node and its children.
func (p PredicateSpec) Predicate() (queryir.Predicate, error) {
	var out []queryir.Predicate
	add := func(q queryir.Predicate, err error) error {
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	}

	compares := []struct {
		cmp *CompareSpec
		op  string
	}{{p.Eq, "eq"}, {p.Ne, "ne"}, {p.Lt, "lt"}, {p.Le, "le"}, {p.Gt, "gt"}, {p.Ge, "ge"}}
	for _, c := range compares {
		if c.cmp == nil {
			continue
		}
		if err := add(c.cmp.predicate(c.op)); err != nil {
			return nil, err
		}
	}
	if p.IsNull != "" {
		out = append(out, queryir.IsNull{Field: p.IsNull})
	}
	if p.NotNull != "" {
		out = append(out, queryir.IsNotNull{Field: p.NotNull})
	}
	if p.And != nil {
		if err := add(children(p.And, func(ps []queryir.Predicate) queryir.Predicate { return queryir.And{Predicates: ps} })); err != nil {
			return nil, fmt.Errorf("and: %w", err)
		}
	}
	if p.Or != nil {
		if err := add(children(p.Or, func(ps []queryir.Predicate) queryir.Predicate { return queryir.Or{Predicates: ps} })); err != nil {
			return nil, fmt.Errorf("or: %w", err)
		}
	}
	if p.Not != nil {
		inner, err := p.Not.Predicate()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		out = append(out, queryir.Not{Predicate: inner})
	}
	if p.Raw != nil {
		if err := add(p.Raw.predicate()); err != nil {
			return nil, fmt.Errorf("raw: %w", err)
		}
	}

	if len(out) != 1 {
		return nil, fmt.Errorf("predicate must set exactly one operator, got %d", len(out))
	}
	return out[0], nil
}

func children(specs []PredicateSpec, build func([]queryir.Predicate) queryir.Predicate) (queryir.Predicate, error) {
	ps := make([]queryir.Predicate, len(specs))
	for i, s := range specs {
		p, err := s.Predicate()
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		ps[i] = p
	}
	return build(ps), nil
}

func (c CompareSpec) predicate(op string) (queryir.Predicate, error) {
	if c.Field == "" {
		return nil, fmt.Errorf("%s: field is required", op)
	}
	v, err := ir.FromGo(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, c.Field, err)
	}
	switch op {
	case "eq":
		return queryir.Equals{Field: c.Field, Value: v}, nil
	case "ne":
		return queryir.NotEquals{Field: c.Field, Value: v}, nil
	case "lt":
		return queryir.Compare{Field: c.Field, Op: queryir.OpLt, Value: v}, nil
	case "le":
		return queryir.Compare{Field: c.Field, Op: queryir.OpLe, Value: v}, nil
	case "gt":
		return queryir.Compare{Field: c.Field, Op: queryir.OpGt, Value: v}, nil
	default:
		return queryir.Compare{Field: c.Field, Op: queryir.OpGe, Value: v}, nil
	}
}

func (r RawSpec) predicate() (queryir.Predicate, error) {
	args := make([]ir.IRValue, len(r.Args))
	for i, a := range r.Args {
		v, err := ir.FromGo(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}
	return queryir.Raw{SQL: r.SQL, Args: args}, nil
}

// Aggregate converts the YAML aggregate to a queryir.Aggregate.
func (a AggregateSpec) Aggregate() queryir.Aggregate {
	return queryir.Aggregate{Func: queryir.AggFunc(a.Func), Field: a.Field}
}
