package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/db"
	"github.com/nickyhof/TupleDB/ps"
)

var bindingIdentity = core.Identity{
	Name:  "TupleDB Python",
	Email: "python@tupledb.local",
}

var errInvalidHandle = errors.New("invalid handle")

// Handle represents an open database instance
type Handle struct {
	instance *TupleDB.Instance
	engine   *db.Engine
	mu       sync.Mutex
}

type handleTable struct {
	mu      sync.Mutex
	handles map[int]*Handle
	next    int
}

var handles = &handleTable{handles: make(map[int]*Handle), next: 1}

func (table *handleTable) add(instance *TupleDB.Instance) int {
	table.mu.Lock()
	defer table.mu.Unlock()

	id := table.next
	table.next++
	table.handles[id] = &Handle{
		instance: instance,
		engine:   instance.Engine(bindingIdentity),
	}
	return id
}

func (table *handleTable) get(id int) (*Handle, error) {
	table.mu.Lock()
	defer table.mu.Unlock()

	h, ok := table.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errInvalidHandle, id)
	}
	return h, nil
}

func (table *handleTable) remove(id int) {
	table.mu.Lock()
	defer table.mu.Unlock()
	delete(table.handles, id)
}

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type QueryResponse struct {
	Columns         []string   `json:"columns"`
	Data            [][]string `json:"data"`
	RecordsRead     int        `json:"records_read"`
	ExecutionTimeMs float64    `json:"execution_time_ms"`
	ExecutionOps    int        `json:"execution_ops"`
}

type CommitResponse struct {
	Transaction     string  `json:"transaction,omitempty"`
	RecordsWritten  int     `json:"records_written,omitempty"`
	RecordsDeleted  int     `json:"records_deleted,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	ExecutionOps    int     `json:"execution_ops"`
}

// openMemory opens an in-memory instance declaring the tables in schema,
// given in schema file syntax.
func openMemory(schema string) (int, error) {
	defs, err := ps.ParseSchemaFile([]byte(schema))
	if err != nil {
		return -1, err
	}

	persistence, err := ps.NewMemoryPersistence(ps.WithIdentity(bindingIdentity))
	if err != nil {
		return -1, err
	}
	if len(defs) > 0 {
		if _, err := persistence.WriteSchema(defs, bindingIdentity); err != nil {
			return -1, err
		}
	}

	instance, err := TupleDB.Open(persistence)
	if err != nil {
		return -1, err
	}
	return handles.add(instance), nil
}

func openFile(path string) (int, error) {
	persistence, err := ps.NewFilePersistence(path, ps.WithIdentity(bindingIdentity))
	if err != nil {
		return -1, err
	}

	instance, err := TupleDB.Open(persistence)
	if err != nil {
		return -1, err
	}
	return handles.add(instance), nil
}

func execute(id int, query string) Response {
	h, err := handles.get(id)
	if err != nil {
		return errorResponse(err)
	}

	h.mu.Lock()
	result, err := h.engine.Execute(query)
	h.mu.Unlock()
	if err != nil {
		return errorResponse(err)
	}

	var payload any
	var responseType string

	switch r := result.(type) {
	case db.QueryResult:
		responseType = "query"
		payload = QueryResponse{
			Columns:         r.Columns(),
			Data:            r.Data(),
			RecordsRead:     r.RecordsRead,
			ExecutionTimeMs: r.ExecutionTimeSec * 1000,
			ExecutionOps:    r.ExecutionOps,
		}

	case db.CommitResult:
		responseType = "commit"
		payload = CommitResponse{
			Transaction:     r.Transaction.Id,
			RecordsWritten:  r.RecordsWritten,
			RecordsDeleted:  r.RecordsDeleted,
			ExecutionTimeMs: r.ExecutionTimeSec * 1000,
			ExecutionOps:    r.ExecutionOps,
		}

	default:
		return Response{Success: true, Type: "unknown"}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Type: responseType, Result: data}
}

func errorResponse(err error) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
	}
}

func encode(resp Response) string {
	jsonData, err := json.Marshal(resp)
	if err != nil {
		return `{"success":false,"error":"failed to encode response"}`
	}
	return string(jsonData)
}
