package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

var ErrScopeUnsupported = errors.New("listing does not support scoping")

// Scope restricts a listing to rows whose registry scope expression equals Value.
type Scope struct {
	Value any
}

// ListQuery is a resolved listing request ready to be rendered as count and page SQL.
type ListQuery struct {
	registry *Registry
	dialect  goqu.DialectWrapper
	where    []exp.Expression
	order    []exp.OrderedExpression

	Filter FilterSelection
	Sort   SortSelection

	// FilterFallback is set when the requested filter column was not registered and the
	// search ran against every registered column instead.
	FilterFallback bool
	// SortFallback is set when the requested sort column was not registered or unsorted.
	SortFallback bool
}

// BuildListQuery resolves filter, sort and scope against the registry. Unknown column keys
// never fail the request: filters fall back to searching all registered columns and sorting
// falls back to the registry default. Only registered expressions reach the SQL text; the
// search text and scope value are always bound parameters.
func BuildListQuery(dialect string, reg *Registry, filter FilterSelection, sort SortSelection, scope *Scope) (*ListQuery, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if dialect == "" {
		dialect = DialectSQLite
	}

	q := &ListQuery{registry: reg, dialect: goqu.Dialect(dialect)}

	if scope != nil {
		if !reg.Scoped() {
			return nil, fmt.Errorf("%s: %w", reg.Name, ErrScopeUnsupported)
		}
		q.where = append(q.where, goqu.L("("+reg.ScopeExpression+") = ?", scope.Value))
	}

	q.resolveFilter(filter)
	q.resolveSort(sort)

	return q, nil
}

func (q *ListQuery) resolveFilter(filter FilterSelection) {
	column, known := q.registry.FilterColumn(filter.ColumnKey)
	q.FilterFallback = filter.ColumnKey != "" && !known
	q.Filter = FilterSelection{SearchText: filter.SearchText}
	if known {
		q.Filter.ColumnKey = column.Key
	}

	if filter.SearchText == "" {
		return
	}

	pattern := "%" + escapeLike(filter.SearchText) + "%"
	if known {
		q.where = append(q.where, likeExpression(column.Expression, pattern))
		return
	}

	alternatives := make([]exp.Expression, 0, len(q.registry.FilterColumns))
	for _, c := range q.registry.FilterColumns {
		alternatives = append(alternatives, likeExpression(c.Expression, pattern))
	}
	if len(alternatives) > 0 {
		q.where = append(q.where, goqu.Or(alternatives...))
	}
}

func (q *ListQuery) resolveSort(sort SortSelection) {
	field, known := q.registry.SortField(sort.ColumnKey)
	direction := sort.Direction
	if direction == "" {
		direction = SortAsc
	}
	if !known || direction == SortNone {
		q.SortFallback = sort.ColumnKey != ""
		field, _ = q.registry.SortField(q.registry.DefaultSortKey)
		direction = SortAsc
	}

	q.Sort = SortSelection{ColumnKey: field.Key, Direction: direction}
	q.order = append(q.order, ordered(field.Expression, direction))

	// identity tie-breaker keeps pages stable when the sort column has duplicates
	if field.Key != q.registry.DefaultSortKey {
		identity, _ := q.registry.SortField(q.registry.DefaultSortKey)
		q.order = append(q.order, ordered(identity.Expression, SortAsc))
	}
}

func (q *ListQuery) base() *goqu.SelectDataset {
	src := q.registry.Source
	var from interface{} = goqu.T(src.Table)
	if src.Alias != "" {
		from = goqu.T(src.Table).As(src.Alias)
	}

	ds := q.dialect.From(from).Prepared(true)
	for _, j := range src.Joins {
		var table exp.Expression = goqu.T(j.Table)
		if j.Alias != "" {
			table = goqu.T(j.Table).As(j.Alias)
		}
		on := goqu.On(goqu.L(j.On))
		if j.Left {
			ds = ds.LeftJoin(table, on)
		} else {
			ds = ds.InnerJoin(table, on)
		}
	}
	if len(q.where) > 0 {
		ds = ds.Where(q.where...)
	}
	return ds
}

// CountSQL renders the total-records query.
func (q *ListQuery) CountSQL() (string, []interface{}, error) {
	query, args, err := q.base().Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build %s count query: %w", q.registry.Name, err)
	}
	return query, args, nil
}

// PageSQL renders the bounded page query. A limit of zero leaves the query unbounded.
func (q *ListQuery) PageSQL(offset, limit int) (string, []interface{}, error) {
	if offset < 0 {
		return "", nil, fmt.Errorf("negative offset %d", offset)
	}

	cols := make([]interface{}, 0, len(q.registry.Projection))
	for _, p := range q.registry.Projection {
		cols = append(cols, goqu.L(p.Expression).As(p.Alias))
	}

	ds := q.base().Select(cols...).Order(q.order...)
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build %s page query: %w", q.registry.Name, err)
	}
	return query, args, nil
}

func (q *ListQuery) Registry() *Registry {
	return q.registry
}

func likeExpression(expression, pattern string) exp.Expression {
	return goqu.L("("+expression+") LIKE ? ESCAPE '\\'", pattern)
}

func ordered(expression string, direction SortDirection) exp.OrderedExpression {
	if direction == SortDesc {
		return goqu.L(expression).Desc()
	}
	return goqu.L(expression).Asc()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
