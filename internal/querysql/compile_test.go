package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/causeway/internal/queryir"
)

func TestCompile_SessionOnly(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Session: "s1"})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT "+EntityColumns+" FROM entities WHERE session_id = ? ORDER BY seq ASC, id ASC",
		sql)
	assert.Equal(t, []any{"s1"}, params)
}

func TestCompile_Equals(t *testing.T) {
	tests := []struct {
		name  string
		pred  queryir.Predicate
		where string
		param any
	}{
		{"text", queryir.Equals{Field: queryir.FieldName, Value: queryir.Text("Worker")}, "name = ?", "Worker"},
		{"int", queryir.Equals{Field: queryir.FieldCausal, Value: queryir.Int(10)}, "causal_msg = ?", int64(10)},
		{"pointer", &queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Actor")}, "kind = ?", "Actor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(queryir.Select{Session: "s", Filter: tt.pred})
			require.NoError(t, err)

			assert.Contains(t, sql, "WHERE session_id = ? AND "+tt.where+" ORDER BY")
			assert.Equal(t, []any{"s", tt.param}, params)
		})
	}
}

func TestCompile_ValuesAreParameterized(t *testing.T) {
	q := queryir.Select{Session: "s'; DROP TABLE entities; --", Filter: queryir.Equals{
		Field: queryir.FieldName,
		Value: queryir.Text("x' OR '1'='1"),
	}}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.NotContains(t, sql, "'1'='1")
	assert.Len(t, params, 2)
}

func TestCompile_Prefix(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Session: "s",
		Filter:  queryir.Prefix{Field: queryir.FieldName, Value: "Wörk"},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "substr(name, 1, ?) = ?")
	assert.Equal(t, []any{"s", 4, "Wörk"}, params)
}

func TestCompile_EmptyPrefixMatchesAll(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Session: "s",
		Filter:  queryir.Prefix{Field: queryir.FieldName},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "AND 1 = 1")
	assert.Equal(t, []any{"s"}, params)
}

func TestCompile_Between(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Session: "s",
		Filter:  queryir.Between{Field: queryir.FieldSeq, Min: 2, Max: 4},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "seq BETWEEN ? AND ?")
	assert.Equal(t, []any{"s", int64(2), int64(4)}, params)
}

func TestCompile_AndKeepsParamOrder(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Session: "s",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Task")},
			queryir.Between{Field: queryir.FieldID, Min: 1, Max: 9},
			queryir.Prefix{Field: queryir.FieldURI, Value: "lib/"},
		}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "(kind = ? AND id BETWEEN ? AND ? AND substr(uri, 1, ?) = ?)")
	assert.Equal(t, []any{"s", "Task", int64(1), int64(9), 4, "lib/"}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.Select{Session: "s", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "AND 1 = 1")
}

func TestCompile_Limit(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Session: "s", Limit: 5})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "ORDER BY seq ASC, id ASC LIMIT ?"))
	assert.Equal(t, []any{"s", 5}, params)
}

func TestCompile_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
	}{
		{"nil", nil},
		{"no session", queryir.Select{}},
		{"bad field", queryir.Select{Session: "s", Filter: queryir.Equals{Field: "colour", Value: queryir.Text("red")}}},
		{"bad range", queryir.Select{Session: "s", Filter: queryir.Between{Field: queryir.FieldSeq, Min: 2, Max: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewSQLCompiler().Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid query")
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		lo := rapid.Int64Range(0, 100).Draw(t, "lo")
		hi := rapid.Int64Range(lo, 200).Draw(t, "hi")
		q := queryir.Select{Session: "s", Filter: queryir.All(
			queryir.Prefix{Field: queryir.FieldName, Value: name},
			queryir.Between{Field: queryir.FieldSeq, Min: lo, Max: hi},
		)}

		sql1, params1, err := NewSQLCompiler().Compile(q)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		sql2, params2, err := NewSQLCompiler().Compile(q)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		if sql1 != sql2 {
			t.Fatalf("sql differs: %q vs %q", sql1, sql2)
		}
		if len(params1) != len(params2) {
			t.Fatalf("params differ: %v vs %v", params1, params2)
		}
		if strings.Count(sql1, "?") != len(params1) {
			t.Fatalf("%d placeholders for %d params", strings.Count(sql1, "?"), len(params1))
		}
	})
}
