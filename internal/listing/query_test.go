package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery_KnownFilter(t *testing.T) {
	reg := testRegistry(t)

	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{ColumnKey: "issuedIdentifier", SearchText: "RENT"}, SortSelection{}, nil)
	require.NoError(t, err)
	assert.False(t, q.FilterFallback)
	assert.Equal(t, "issuedIdentifier", q.Filter.ColumnKey)

	sql, args, err := q.CountSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "COUNT(*)")
	assert.Contains(t, sql, "(r.issued_identifier) LIKE ?")
	assert.NotContains(t, sql, "c.first_name")
	assert.Equal(t, []interface{}{"%RENT%"}, args)
}

func TestBuildListQuery_UnknownFilterFallsBackToAllColumns(t *testing.T) {
	reg := testRegistry(t)

	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{ColumnKey: "doesNotExist", SearchText: "abc"}, SortSelection{}, nil)
	require.NoError(t, err)
	assert.True(t, q.FilterFallback)
	assert.Empty(t, q.Filter.ColumnKey)

	sql, args, err := q.PageSQL(0, 10)
	require.NoError(t, err)
	assert.NotContains(t, sql, "doesNotExist")
	assert.Contains(t, sql, "(r.issued_identifier) LIKE ?")
	assert.Contains(t, sql, "(c.first_name || ' ' || c.last_name) LIKE ?")
	assert.Contains(t, sql, " OR ")
	assert.Equal(t, "%abc%", args[0])
	assert.Equal(t, "%abc%", args[1])
}

func TestBuildListQuery_EmptySearchMatchesEverything(t *testing.T) {
	reg := testRegistry(t)

	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{ColumnKey: "client"}, SortSelection{}, nil)
	require.NoError(t, err)

	sql, args, err := q.CountSQL()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestBuildListQuery_SearchTextIsBoundAndEscaped(t *testing.T) {
	reg := testRegistry(t)
	hostile := "x') OR 1=1; DROP TABLE rents; --%_"

	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{SearchText: hostile}, SortSelection{}, nil)
	require.NoError(t, err)

	sql, args, err := q.CountSQL()
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE")
	require.NotEmpty(t, args)
	assert.Equal(t, `%x') OR 1=1; DROP TABLE rents; --\%\_%`, args[0])
}

func TestBuildListQuery_Sort(t *testing.T) {
	reg := testRegistry(t)

	t.Run("KnownColumnDesc", func(t *testing.T) {
		q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{ColumnKey: "issuedIdentifier", Direction: SortDesc}, nil)
		require.NoError(t, err)
		assert.False(t, q.SortFallback)

		sql, _, err := q.PageSQL(0, 10)
		require.NoError(t, err)
		assert.Contains(t, sql, "ORDER BY r.issued_identifier DESC, r.id ASC")
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{ColumnKey: "1; DROP TABLE rents", Direction: SortDesc}, nil)
		require.NoError(t, err)
		assert.True(t, q.SortFallback)
		assert.Equal(t, SortSelection{ColumnKey: "identity", Direction: SortAsc}, q.Sort)

		sql, _, err := q.PageSQL(0, 10)
		require.NoError(t, err)
		assert.NotContains(t, sql, "DROP")
		assert.Contains(t, sql, "ORDER BY r.id ASC")
	})

	t.Run("NoneDirection", func(t *testing.T) {
		q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{ColumnKey: "issuedIdentifier", Direction: SortNone}, nil)
		require.NoError(t, err)
		assert.Equal(t, "identity", q.Sort.ColumnKey)
		assert.Equal(t, SortAsc, q.Sort.Direction)
	})

	t.Run("Unspecified", func(t *testing.T) {
		q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{}, nil)
		require.NoError(t, err)
		assert.False(t, q.SortFallback)
		assert.Equal(t, "identity", q.Sort.ColumnKey)
	})
}

func TestBuildListQuery_ScopeComesFirst(t *testing.T) {
	reg := testRegistry(t)

	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{SearchText: "abc", ColumnKey: "client"}, SortSelection{}, &Scope{Value: int64(7)})
	require.NoError(t, err)

	sql, args, err := q.CountSQL()
	require.NoError(t, err)
	scopeAt := strings.Index(sql, "(r.employer_id) = ?")
	filterAt := strings.Index(sql, "LIKE ?")
	require.NotEqual(t, -1, scopeAt)
	require.NotEqual(t, -1, filterAt)
	assert.Less(t, scopeAt, filterAt)
	assert.Equal(t, []interface{}{int64(7), "%abc%"}, args)
}

func TestBuildListQuery_ScopeOnUnscopedRegistry(t *testing.T) {
	reg, err := NewRegistry(Registry{
		Name:           "customers",
		Source:         Source{Table: "customers", Alias: "c"},
		Projection:     []Projection{{Alias: "id", Expression: "c.id"}},
		SortFields:     []SortField{{Key: "identity", Expression: "c.id"}},
		DefaultSortKey: "identity",
	})
	require.NoError(t, err)

	_, err = BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{}, &Scope{Value: 1})
	assert.ErrorIs(t, err, ErrScopeUnsupported)
}

func TestBuildListQuery_NilRegistry(t *testing.T) {
	_, err := BuildListQuery(DialectSQLite, nil, FilterSelection{}, SortSelection{}, nil)
	assert.Error(t, err)
}

func TestPageSQL(t *testing.T) {
	reg := testRegistry(t)
	q, err := BuildListQuery(DialectSQLite, reg, FilterSelection{}, SortSelection{}, nil)
	require.NoError(t, err)

	sql, args, err := q.PageSQL(20, 10)
	require.NoError(t, err)
	assert.Contains(t, sql, "r.id AS `id`")
	assert.Contains(t, sql, "LEFT JOIN `customers` AS `c`")
	assert.Contains(t, sql, "c.id = r.customer_id")
	assert.Contains(t, sql, "LIMIT ?")
	assert.Contains(t, sql, "OFFSET ?")
	assert.Len(t, args, 2)

	_, _, err = q.PageSQL(-1, 10)
	assert.Error(t, err)

	sql, _, err = q.PageSQL(0, 0)
	require.NoError(t, err)
	assert.NotContains(t, sql, "LIMIT")
}

func TestPostgresDialectNumbersPlaceholders(t *testing.T) {
	reg := testRegistry(t)
	q, err := BuildListQuery(DialectPostgres, reg, FilterSelection{SearchText: "abc"}, SortSelection{}, &Scope{Value: int64(3)})
	require.NoError(t, err)

	sql, args, err := q.CountSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "(r.employer_id) = $1")
	assert.Contains(t, sql, "LIKE $2")
	assert.Contains(t, sql, `FROM "rents" AS "r"`)
	assert.Len(t, args, 3)
}
