package ps

import (
	"errors"
	"fmt"

	"github.com/nickyhof/TupleDB/core"
)

var ErrTransactionClosed = errors.New("transaction not started")

// Operation represents a single file write or delete in a transaction
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// TransactionBuilder batches file operations into a single commit
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: persistence,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

func (tb *TransactionBuilder) AddWrite(path string, data []byte) error {
	if !tb.started {
		return ErrTransactionClosed
	}

	tb.operations = append(tb.operations, Operation{
		Type: WriteOp,
		Path: path,
		Data: data,
	})

	return nil
}

func (tb *TransactionBuilder) AddDelete(path string) error {
	if !tb.started {
		return ErrTransactionClosed
	}

	tb.operations = append(tb.operations, Operation{
		Type: DeleteOp,
		Path: path,
	})

	return nil
}

// Commit applies all batched operations in a single commit. An empty message
// is replaced by a summary of the operation count.
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if !tb.started {
		return Transaction{}, ErrTransactionClosed
	}

	if len(tb.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	tb.persistence.mu.Lock()
	defer tb.persistence.mu.Unlock()

	changes := make([]TreeChange, 0, len(tb.operations))
	for _, op := range tb.operations {
		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, TreeChange{Path: op.Path, BlobHash: blobHash})
		case DeleteOp:
			changes = append(changes, TreeChange{Path: op.Path, IsDelete: true})
		}
	}

	if message == "" {
		message = fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	}

	txn, err := tb.persistence.commitChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
