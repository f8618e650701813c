//go:build comparative

package db

import (
	gosql "database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/nickyhof/TupleDB/core"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"
)

const comparativeRows = 500

// setupComparativeEngine fills a memory-only engine and a DuckDB database
// with the same rows.
func setupComparativeEngine(tb testing.TB) (*Engine, *gosql.DB) {
	tb.Helper()

	schema, err := core.ParseSchema([]string{"sid:Integer", "name:String", "gpa:Double", "city:String"})
	require.NoError(tb, err)
	store := NewStore()
	require.NoError(tb, store.Add(core.NewTable("Students", schema)))
	engine := NewEngine(store, nil, testIdentity)

	duck, err := gosql.Open("duckdb", "")
	require.NoError(tb, err)
	tb.Cleanup(func() { duck.Close() })

	_, err = duck.Exec("CREATE TABLE Students (sid BIGINT, name VARCHAR, gpa DOUBLE, city VARCHAR)")
	require.NoError(tb, err)

	for i := 1; i <= comparativeRows; i++ {
		name := "User" + strconv.Itoa(i)
		gpa := float64(i%41) / 10
		city := "City" + strconv.Itoa(i%10)

		_, err := engine.Execute(fmt.Sprintf("INSERT INTO Students (sid, name, gpa, city) VALUES (%d, '%s', %s, '%s')",
			i-comparativeRows/2, name, strconv.FormatFloat(gpa, 'f', -1, 64), city))
		require.NoError(tb, err)

		_, err = duck.Exec("INSERT INTO Students VALUES (?, ?, ?, ?)", i-comparativeRows/2, name, gpa, city)
		require.NoError(tb, err)
	}

	return engine, duck
}

func duckIds(t *testing.T, duck *gosql.DB, where string) []string {
	t.Helper()

	rows, err := duck.Query("SELECT sid FROM Students WHERE " + where + " ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var sid int64
		require.NoError(t, rows.Scan(&sid))
		ids = append(ids, strconv.FormatInt(sid, 10))
	}
	require.NoError(t, rows.Err())
	return ids
}

func engineIds(t *testing.T, engine *Engine, where string) []string {
	t.Helper()

	result, err := engine.Execute("SELECT sid FROM Students WHERE " + where)
	require.NoError(t, err)

	var ids []string
	for _, row := range result.(QueryResult).Data() {
		ids = append(ids, row[0])
	}
	return ids
}

func TestFilterMatchesDuckDB(t *testing.T) {
	engine, duck := setupComparativeEngine(t)

	operands := []struct {
		column  string
		literal string
	}{
		{"sid", "0"},
		{"sid", "-17"},
		{"gpa", "2.5"},
		{"gpa", "4.0"},
		{"name", "'User250'"},
		{"city", "'City3'"},
	}

	for _, operand := range operands {
		for _, operator := range []string{"=", "!=", "<>", "<", ">", "<=", ">="} {
			where := operand.column + " " + operator + " " + operand.literal
			t.Run(where, func(t *testing.T) {
				require.Equal(t, duckIds(t, duck, where), engineIds(t, engine, where))
			})
		}
	}
}

func TestDeleteMatchesDuckDB(t *testing.T) {
	engine, duck := setupComparativeEngine(t)

	for _, where := range []string{"gpa < 1.5", "city = 'City7'", "sid >= 200"} {
		_, err := engine.Execute("DELETE FROM Students WHERE " + where)
		require.NoError(t, err)
		_, err = duck.Exec("DELETE FROM Students WHERE " + where)
		require.NoError(t, err)
	}

	require.Equal(t, duckIds(t, duck, "sid = sid"), engineIds(t, engine, "sid > -1000000"))
}

func BenchmarkEngineSelectWhere(b *testing.B) {
	engine, _ := setupComparativeEngine(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute("SELECT name FROM Students WHERE gpa > 3.0"); err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

func BenchmarkDuckDBSelectWhere(b *testing.B) {
	_, duck := setupComparativeEngine(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := duck.Query("SELECT name FROM Students WHERE gpa > 3.0")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var name string
			rows.Scan(&name)
		}
		rows.Close()
	}
}
