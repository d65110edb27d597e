package listing

import (
	"errors"
	"fmt"
	"strings"
)

// FilterColumn is a whitelisted, searchable logical column.
// Expression is a trusted SQL fragment and never comes from request input.
type FilterColumn struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Expression string `json:"-"`
}

// SortField is a whitelisted sortable logical column.
type SortField struct {
	Key        string `json:"key"`
	Expression string `json:"-"`
}

// Projection is one selected output column.
type Projection struct {
	Alias      string
	Expression string
}

type Join struct {
	Table string
	Alias string
	On    string
	Left  bool
}

type Source struct {
	Table string
	Alias string
	Joins []Join
}

// Registry declares everything a listing may select, filter, sort and scope by.
type Registry struct {
	Name            string
	Source          Source
	Projection      []Projection
	FilterColumns   []FilterColumn
	SortFields      []SortField
	DefaultSortKey  string
	ScopeExpression string

	filters map[string]FilterColumn
	sorts   map[string]SortField
}

var errPlaceholderInExpression = errors.New("expression must not contain placeholders")

// NewRegistry validates the declaration and indexes its columns.
func NewRegistry(r Registry) (*Registry, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("registry name is required")
	}
	if r.Source.Table == "" {
		return nil, fmt.Errorf("registry %s: source table is required", r.Name)
	}
	if len(r.Projection) == 0 {
		return nil, fmt.Errorf("registry %s: projection is empty", r.Name)
	}

	r.filters = make(map[string]FilterColumn, len(r.FilterColumns))
	for _, c := range r.FilterColumns {
		if err := checkColumn(c.Key, c.Expression); err != nil {
			return nil, fmt.Errorf("registry %s: filter %q: %w", r.Name, c.Key, err)
		}
		if _, dup := r.filters[c.Key]; dup {
			return nil, fmt.Errorf("registry %s: duplicate filter key %q", r.Name, c.Key)
		}
		r.filters[c.Key] = c
	}

	r.sorts = make(map[string]SortField, len(r.SortFields))
	for _, s := range r.SortFields {
		if err := checkColumn(s.Key, s.Expression); err != nil {
			return nil, fmt.Errorf("registry %s: sort %q: %w", r.Name, s.Key, err)
		}
		if _, dup := r.sorts[s.Key]; dup {
			return nil, fmt.Errorf("registry %s: duplicate sort key %q", r.Name, s.Key)
		}
		r.sorts[s.Key] = s
	}

	if _, ok := r.sorts[r.DefaultSortKey]; !ok {
		return nil, fmt.Errorf("registry %s: default sort key %q is not registered", r.Name, r.DefaultSortKey)
	}
	if strings.Contains(r.ScopeExpression, "?") {
		return nil, fmt.Errorf("registry %s: scope: %w", r.Name, errPlaceholderInExpression)
	}

	return &r, nil
}

// MustRegistry is NewRegistry for package-level declarations.
func MustRegistry(r Registry) *Registry {
	reg, err := NewRegistry(r)
	if err != nil {
		panic(err)
	}
	return reg
}

func checkColumn(key, expression string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	if strings.TrimSpace(expression) == "" {
		return errors.New("expression is required")
	}
	if strings.Contains(expression, "?") {
		return errPlaceholderInExpression
	}
	return nil
}

func (r *Registry) FilterColumn(key string) (FilterColumn, bool) {
	c, ok := r.filters[key]
	return c, ok
}

func (r *Registry) SortField(key string) (SortField, bool) {
	s, ok := r.sorts[key]
	return s, ok
}

// Columns returns the filterable columns in declaration order, for select boxes.
func (r *Registry) Columns() []FilterColumn {
	out := make([]FilterColumn, len(r.FilterColumns))
	copy(out, r.FilterColumns)
	return out
}

func (r *Registry) SortKeys() []string {
	keys := make([]string, 0, len(r.SortFields))
	for _, s := range r.SortFields {
		keys = append(keys, s.Key)
	}
	return keys
}

func (r *Registry) Scoped() bool {
	return r.ScopeExpression != ""
}
