package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display()
	Render(w io.Writer)
}

// QueryResult carries the table built by a SELECT.
type QueryResult struct {
	Table            *core.Table
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

// CommitResult describes an INSERT or DELETE that has been written back.
type CommitResult struct {
	Transaction      ps.Transaction
	Change           Change
	RecordsWritten   int
	RecordsDeleted   int
	ExecutionTimeSec float64
	ExecutionOps     int
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func (result QueryResult) Columns() []string {
	if result.Table == nil {
		return nil
	}
	return result.Table.Schema().Names()
}

func (result QueryResult) Data() [][]string {
	if result.Table == nil {
		return nil
	}
	return result.Table.Rows()
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func formatThroughput(secs float64, ops int) string {
	if secs <= 0 || ops <= 0 {
		return ""
	}
	rate := float64(ops) / secs
	switch {
	case rate >= 1000000:
		return fmt.Sprintf(", %.1fM ops/s", rate/1000000)
	case rate >= 1000:
		return fmt.Sprintf(", %.1fK ops/s", rate/1000)
	default:
		return fmt.Sprintf(", %.0f ops/s", rate)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display() {
	result.Render(os.Stdout)
}

func (result QueryResult) Render(w io.Writer) {
	if result.Table != nil && result.Table.Len() > 0 {
		grid := NewGrid(w)
		grid.Schema(result.Table.Schema())
		grid.Bulk(result.Table.Rows())
		grid.Render()
	}

	fmt.Fprintf(w, "%d rows (%s%s)\n", result.RecordsRead, result.ExecutionTime(),
		formatThroughput(result.ExecutionTimeSec, result.ExecutionOps))
}

func (result CommitResult) Display() {
	result.Render(os.Stdout)
}

func (result CommitResult) Render(w io.Writer) {
	var parts []string

	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	throughput := formatThroughput(result.ExecutionTimeSec, result.ExecutionOps)
	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s%s)\n", result.ExecutionTime(), throughput)
	} else {
		fmt.Fprintf(w, "%s (%s%s)\n", strings.Join(parts, ", "), result.ExecutionTime(), throughput)
	}
}
