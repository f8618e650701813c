// Package main provides a TCP server for TupleDB.
//
// Clients send one query per line, either as plain text or as a JSON
// Request, and receive one JSON Response per line.
package main

import (
	"encoding/json"
	"strings"
)

// Request represents a query from the client.
type Request struct {
	Query string `json:"query"`
}

// Response represents the server's response to a query.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // "query", "commit" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// QueryResponse contains tabular query results.
type QueryResponse struct {
	Columns     []string   `json:"columns"`
	Data        [][]string `json:"data"`
	RecordsRead int        `json:"records_read"`
	TimeMs      float64    `json:"time_ms"`
}

// CommitResponse contains mutation results.
type CommitResponse struct {
	Transaction    string  `json:"transaction,omitempty"`
	Table          string  `json:"table"`
	RecordsWritten int     `json:"records_written,omitempty"`
	RecordsDeleted int     `json:"records_deleted,omitempty"`
	TimeMs         float64 `json:"time_ms"`
}

// AuthResponse is the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"` // seconds
	ConnectionId  string `json:"connection_id"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

// readQuery returns the query carried by one input line. Lines starting with
// '{' are JSON requests; anything else is the query itself.
func readQuery(line string) (string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return line, nil
	}

	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(req.Query), nil
}

func errorResponse(responseType string, err error) Response {
	return Response{
		Success: false,
		Type:    responseType,
		Error:   err.Error(),
	}
}

func resultResponse(responseType string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(responseType, err)
	}
	return Response{
		Success: true,
		Type:    responseType,
		Result:  data,
	}
}
