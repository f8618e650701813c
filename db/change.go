package db

import (
	"fmt"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
)

type ChangeKind int

const (
	// AppendRows adds Rows to the end of the table's stored rows.
	AppendRows ChangeKind = iota
	// RewriteTable replaces the stored rows with Rows.
	RewriteTable
)

func (kind ChangeKind) String() string {
	switch kind {
	case AppendRows:
		return "append"
	case RewriteTable:
		return "rewrite"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(kind))
	}
}

// Change is the durable effect of a mutating statement, with rows in their
// textual form.
type Change struct {
	Kind  ChangeKind
	Table string
	Rows  [][]string
}

func (change Change) String() string {
	return fmt.Sprintf("%s %s (%d rows)", change.Kind, change.Table, len(change.Rows))
}

// ChangeWriter makes a change durable. The engine updates its tables only
// after Apply returns without error.
type ChangeWriter interface {
	Apply(change Change, identity core.Identity) (ps.Transaction, error)
}
