// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
)

// rootAlias is the alias of the queried set. Raw fragments address root
// columns through it.
const rootAlias = "t"

// MaxParams bounds the placeholders of one include statement.
const MaxParams = 500

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: Ordered or paged queries always end with the key columns, so
// ties never leave row order to the engine.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a Select to parameterized SQL.
// The result columns are model.Types[From].Columns, in order.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query, "")
	case *queryir.Select:
		return c.compileSelect(*query, "")
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// CompileAggregate converts an aggregate over sel to SQL returning one row
// with one (possibly NULL) integer column.
func (c *SQLCompiler) CompileAggregate(sel queryir.Select, agg queryir.Aggregate) (string, []any, error) {
	var outer string
	switch agg.Func {
	case queryir.AggCount:
		if agg.Field == "" {
			outer = "COUNT(*)"
		} else {
			outer = "COUNT(agg_value)"
		}
	case queryir.AggSum, queryir.AggMin, queryir.AggMax:
		if agg.Field == "" {
			return "", nil, fmt.Errorf("%s requires a field", agg.Func)
		}
		outer = fmt.Sprintf("%s(agg_value)", agg.Func)
	default:
		return "", nil, fmt.Errorf("unsupported aggregate: %q", agg.Func)
	}

	inner, params, err := c.compileSelect(sel, agg.Field)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT %s FROM (%s)", outer, inner), params, nil
}

// CompileInclude loads the targets of nav whose join column is one of
// values. The caller splits values into chunks of at most MaxParams.
func (c *SQLCompiler) CompileInclude(nav model.Navigation, values []any) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("include %s.%s: no parent values", nav.From, nav.Name)
	}
	if len(values) > MaxParams {
		return "", nil, fmt.Errorf("include %s.%s: %d values exceed %d", nav.From, nav.Name, len(values), MaxParams)
	}
	target, err := model.TypeOf(nav.Target)
	if err != nil {
		return "", nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	sql := fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s.%s IN (%s) ORDER BY %s",
		columnList(rootAlias, target.Columns),
		target.Set, rootAlias,
		rootAlias, nav.TargetColumn,
		placeholders,
		keyOrder(rootAlias, target.KeyColumns))

	params := make([]any, len(values))
	copy(params, values)
	return sql, params, nil
}

// compileSelect builds the SELECT. A non-empty extra field is projected as
// agg_value for CompileAggregate.
func (c *SQLCompiler) compileSelect(q queryir.Select, extra string) (string, []any, error) {
	t, err := model.TypeOf(q.From)
	if err != nil {
		return "", nil, err
	}

	joins := newJoinSet(q.From)

	// Resolve every path first so aliases are assigned in a stable order.
	var orderTerms []string
	for _, o := range q.OrderBy {
		expr, err := joins.column(o.Field)
		if err != nil {
			return "", nil, fmt.Errorf("order by: %w", err)
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		orderTerms = append(orderTerms, expr+" "+dir)
	}

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(joins, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	selectClause := columnList(rootAlias, t.Columns)
	if extra != "" {
		expr, err := joins.column(extra)
		if err != nil {
			return "", nil, fmt.Errorf("aggregate: %w", err)
		}
		selectClause += ", " + expr + " AS agg_value"
	}
	if q.Distinct {
		selectClause = "DISTINCT " + selectClause
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s AS %s", selectClause, t.Set, rootAlias)
	for _, j := range joins.joins {
		b.WriteString(j)
	}
	b.WriteString(whereClause)

	if q.Paged() {
		orderTerms = append(orderTerms, keyOrder(rootAlias, t.KeyColumns))
		b.WriteString(" ORDER BY " + strings.Join(orderTerms, ", "))
	}

	if q.Limit > 0 || q.Offset > 0 {
		limit := q.Limit
		if limit == 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, int64(limit), int64(q.Offset))
	}

	return b.String(), params, nil
}

// joinSet assigns one LEFT JOIN alias per distinct navigation prefix.
// LEFT JOIN keeps rows whose optional reference is missing; their joined
// columns read as NULL, which is exactly the null-propagation semantics of
// an in-memory path.
type joinSet struct {
	root    string
	aliases map[string]string
	joins   []string
}

func newJoinSet(root string) *joinSet {
	return &joinSet{root: root, aliases: map[string]string{}}
}

// column returns the qualified column expression for a field path.
func (j *joinSet) column(field string) (string, error) {
	path, err := queryir.ResolvePath(j.root, field)
	if err != nil {
		return "", err
	}
	hops, _ := queryir.SplitPath(field)

	alias := rootAlias
	for i, nav := range path.Hops {
		prefix := strings.Join(hops[:i+1], ".")
		next, ok := j.aliases[prefix]
		if !ok {
			next = fmt.Sprintf("j%d", len(j.aliases)+1)
			j.aliases[prefix] = next
			j.joins = append(j.joins, fmt.Sprintf(" LEFT JOIN %s AS %s ON %s.%s = %s.%s",
				nav.Target, next, next, nav.TargetColumn, alias, nav.FromColumn))
		}
		alias = next
	}
	return alias + "." + path.Column, nil
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(j *joinSet, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileComparison(j, pred.Field, "=", pred.Value)
	case queryir.NotEquals:
		return c.compileComparison(j, pred.Field, "<>", pred.Value)
	case queryir.Compare:
		switch pred.Op {
		case queryir.OpLt, queryir.OpLe, queryir.OpGt, queryir.OpGe:
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", pred.Op)
		}
		return c.compileComparison(j, pred.Field, string(pred.Op), pred.Value)
	case queryir.IsNull:
		col, err := j.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " IS NULL", nil, nil
	case queryir.IsNotNull:
		col, err := j.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " IS NOT NULL", nil, nil
	case queryir.And:
		return c.compileJunction(j, pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(j, pred.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		sql, params, err := c.compilePredicate(j, pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	case queryir.Raw:
		params := make([]any, 0, len(pred.Args))
		for i, a := range pred.Args {
			v, err := ir.Native(a)
			if err != nil {
				return "", nil, fmt.Errorf("raw arg %d: %w", i, err)
			}
			params = append(params, v)
		}
		return "(" + pred.SQL + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileComparison emits "<col> <op> ?". A NULL literal binds as NULL and
// the comparison evaluates to NULL, matching queryir.Eval.
func (c *SQLCompiler) compileComparison(j *joinSet, field, op string, value ir.IRValue) (string, []any, error) {
	col, err := j.column(field)
	if err != nil {
		return "", nil, err
	}
	param, err := ir.Native(value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("%s %s ?", col, op), []any{param}, nil
}

func (c *SQLCompiler) compileJunction(j *joinSet, preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range preds {
		sql, params, err := c.compilePredicate(j, pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return "(" + strings.Join(sqlParts, sep) + ")", allParams, nil
}

func columnList(alias string, columns []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = alias + "." + col
	}
	return strings.Join(parts, ", ")
}

func keyOrder(alias string, keyColumns []string) string {
	parts := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		parts[i] = alias + "." + col + " ASC"
	}
	return strings.Join(parts, ", ")
}
