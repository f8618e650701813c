package ps

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/TupleDB/core"
)

// TableDef is one line of the schema file: a table name and its columns.
type TableDef struct {
	Name   string
	Schema *core.Schema
}

func (def TableDef) String() string {
	return fmt.Sprintf("%s(%s)", def.Name, def.Schema)
}

// DataFile returns the name of the CSV file holding a table's rows.
func DataFile(table string) string {
	return table + ".csv"
}

// ParseSchemaFile reads lines of the form Name(col:Type, col:Type, ...).
// Blank lines are skipped.
func ParseSchemaFile(data []byte) ([]TableDef, error) {
	var defs []TableDef
	seen := make(map[string]bool)

	for number, line := range strings.Split(string(data), "\n") {
		line = core.Clean(line)
		if line == "" {
			continue
		}

		open := strings.Index(line, "(")
		if open < 0 || !strings.HasSuffix(line, ")") {
			return nil, fmt.Errorf("%w: line %d: expected Name(column:Type, ...)", core.ErrMalformedSchema, number+1)
		}

		name := core.Clean(line[:open])
		if name == "" {
			return nil, fmt.Errorf("%w: line %d: missing table name", core.ErrMalformedSchema, number+1)
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("%w: line %d: table %s declared twice", core.ErrMalformedSchema, number+1, name)
		}
		seen[strings.ToLower(name)] = true

		schema, err := core.ParseSchema(strings.Split(line[open+1:len(line)-1], ","))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", number+1, err)
		}

		defs = append(defs, TableDef{Name: name, Schema: schema})
	}

	return defs, nil
}

func FormatSchemaFile(defs []TableDef) []byte {
	var buffer bytes.Buffer
	for _, def := range defs {
		buffer.WriteString(def.String())
		buffer.WriteByte('\n')
	}
	return buffer.Bytes()
}

// DecodeRows parses CSV data into text rows. Blank lines are skipped. Fields
// keep their whitespace; only BOM and NUL bytes are dropped.
func DecodeRows(data []byte) ([][]string, error) {
	// lines holding only whitespace or stray BOM/NUL bytes are not rows
	var cleaned bytes.Buffer
	for _, line := range strings.SplitAfter(string(data), "\n") {
		if core.Clean(line) != "" {
			cleaned.WriteString(line)
		}
	}

	reader := csv.NewReader(&cleaned)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		for i, field := range record {
			record[i] = core.StripMarkers(field)
		}
		rows = append(rows, record)
	}
}

// EncodeRows writes rows as CSV, one line per row.
func EncodeRows(rows [][]string) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	for _, row := range rows {
		// a lone empty field would otherwise be written as a blank line
		if len(row) == 1 && row[0] == "" {
			writer.Flush()
			buffer.WriteString("\"\"\n")
			continue
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// ReadSchema returns the tables declared in the schema file at HEAD. A
// repository without a schema file has no tables.
func (p *Persistence) ReadSchema() ([]TableDef, error) {
	data, err := p.ReadFileDirect(p.schemaFile)
	if errors.Is(err, ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseSchemaFile(data)
}

// WriteSchema replaces the schema file. Data files are left untouched.
func (p *Persistence) WriteSchema(defs []TableDef, identity core.Identity) (Transaction, error) {
	return p.WriteFileDirect(p.schemaFile, FormatSchemaFile(defs), identity,
		fmt.Sprintf("Define %d table(s)", len(defs)))
}

// ReadRows returns the rows stored for table. A missing data file is an empty
// table.
func (p *Persistence) ReadRows(table string) ([][]string, error) {
	data, err := p.ReadFileDirect(DataFile(table))
	if errors.Is(err, ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := DecodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DataFile(table), err)
	}
	return rows, nil
}

// AppendRows adds rows to the end of a table's data file.
func (p *Persistence) AppendRows(table string, rows [][]string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	encoded, err := EncodeRows(rows)
	if err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.readFile(DataFile(table))
	if err != nil && !errors.Is(err, ErrFileNotFound) {
		return Transaction{}, err
	}
	if len(current) > 0 && current[len(current)-1] != '\n' {
		current = append(current, '\n')
	}

	blobHash, err := p.createBlob(append(current, encoded...))
	if err != nil {
		return Transaction{}, err
	}

	return p.commitChanges([]TreeChange{{Path: DataFile(table), BlobHash: blobHash}}, identity,
		fmt.Sprintf("Insert %d row(s) into %s", len(rows), table))
}

// RewriteRows replaces a table's data file with rows.
func (p *Persistence) RewriteRows(table string, rows [][]string, identity core.Identity) (Transaction, error) {
	encoded, err := EncodeRows(rows)
	if err != nil {
		return Transaction{}, err
	}
	return p.WriteFileDirect(DataFile(table), encoded, identity,
		fmt.Sprintf("Rewrite %s with %d row(s)", table, len(rows)))
}
