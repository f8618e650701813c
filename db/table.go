package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/TupleDB/core"
)

// Grid renders rows as an ASCII table. Numeric columns are right aligned.
type Grid struct {
	writer  io.Writer
	headers []string
	numeric []bool
	rows    [][]string
}

func NewGrid(w io.Writer) *Grid {
	return &Grid{
		writer: w,
		rows:   make([][]string, 0),
	}
}

// Header sets the column titles
func (g *Grid) Header(headers []string) {
	g.headers = headers
}

// Schema sets the column titles from schema and aligns Integer and Double
// columns to the right.
func (g *Grid) Schema(schema *core.Schema) {
	g.headers = schema.Names()
	g.numeric = make([]bool, schema.Len())
	for i := range g.numeric {
		columnType := schema.TypeOf(i)
		g.numeric[i] = columnType == core.IntegerType || columnType == core.DoubleType
	}
}

func (g *Grid) Row(row []string) {
	g.rows = append(g.rows, row)
}

func (g *Grid) Bulk(rows [][]string) {
	g.rows = append(g.rows, rows...)
}

func (g *Grid) Render() {
	if len(g.headers) == 0 && len(g.rows) == 0 {
		return
	}

	widths := g.calculateWidths()
	separator := g.buildSeparator(widths)

	fmt.Fprintln(g.writer, separator)

	if len(g.headers) > 0 {
		fmt.Fprintln(g.writer, g.formatRow(g.headers, widths, false))
		fmt.Fprintln(g.writer, separator)
	}

	for _, row := range g.rows {
		fmt.Fprintln(g.writer, g.formatRow(row, widths, true))
	}

	fmt.Fprintln(g.writer, separator)
}

func (g *Grid) calculateWidths() []int {
	numCols := len(g.headers)
	for _, row := range g.rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}

	widths := make([]int, numCols)
	for i, h := range g.headers {
		widths[i] = max(widths[i], len(h))
	}
	for _, row := range g.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 1)
	}

	return widths
}

func (g *Grid) buildSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func (g *Grid) formatRow(row []string, widths []int, align bool) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		padding := strings.Repeat(" ", w-len(cell))
		if align && i < len(g.numeric) && g.numeric[i] {
			parts[i] = " " + padding + cell + " "
		} else {
			parts[i] = " " + cell + padding + " "
		}
	}
	return "|" + strings.Join(parts, "|") + "|"
}
