package ps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/TupleDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestDetectScheme(t *testing.T) {
	tests := map[string]urlScheme{
		"s3://bucket/key":   schemeS3,
		"S3://bucket/key":   schemeS3,
		"https://host/x":    schemeHTTPS,
		"http://host/x":     schemeHTTP,
		"file:///tmp/x.csv": schemeFile,
		"/tmp/x.csv":        schemeLocal,
	}
	for path, expected := range tests {
		assert.Equal(t, expected, detectScheme(path), path)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://data/exports/Students.csv")
	require.NoError(t, err)
	assert.Equal(t, "data", bucket)
	assert.Equal(t, "exports/Students.csv", key)

	_, _, err = parseS3URL("s3://data")
	require.Error(t, err)
}

func TestJoinRemote(t *testing.T) {
	assert.Equal(t, "s3://bucket/db/schema.txt", JoinRemote("s3://bucket/db/", "schema.txt"))
	assert.Equal(t, "/tmp/db/Students.csv", JoinRemote("/tmp/db", "Students.csv"))
	assert.Equal(t, "schema.txt", JoinRemote("", "schema.txt"))
}

func TestImportRemoteLocal(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"schema.txt":   studentsSchemaFile,
		"Students.csv": "1,Ann,3.5\n2,Bo,2.9\n",
	})

	persistence := newTestPersistence(t)
	_, err := persistence.AppendRows("Courses", [][]string{{"7", "Databases"}}, testIdentity)
	require.NoError(t, err)

	txn, defs, err := persistence.ImportRemote(context.Background(), "file://"+dir, nil, testIdentity)
	require.NoError(t, err)
	assert.NotEmpty(t, txn.Id)
	require.Len(t, defs, 2)

	rows, err := persistence.ReadRows("Students")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// a table without a data file at the source is empty after import
	rows, err = persistence.ReadRows("Courses")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestImportRemoteRejectsBadRows(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"schema.txt":   studentsSchemaFile,
		"Students.csv": "1,Ann,3.5\ntwo,Bo,2.9\n",
	})

	persistence := newTestPersistence(t)
	_, _, err := persistence.ImportRemote(context.Background(), dir, nil, testIdentity)
	require.ErrorIs(t, err, core.ErrTypeConversion)

	log, err := persistence.Log(0)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestImportRemoteMissingSchema(t *testing.T) {
	persistence := newTestPersistence(t)
	_, _, err := persistence.ImportRemote(context.Background(), t.TempDir(), nil, testIdentity)
	require.ErrorIs(t, err, ErrRemoteNotFound)
}

func TestImportRemoteHTTP(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"schema.txt":   studentsSchemaFile,
		"Courses.csv":  "7,Databases\n",
		"Students.csv": "1,Ann,3.5\n",
	})
	server := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer server.Close()

	persistence := newTestPersistence(t)
	_, defs, err := persistence.ImportRemote(context.Background(), server.URL, nil, testIdentity)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	rows, err := persistence.ReadRows("Courses")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"7", "Databases"}}, rows)

	_, err = OpenReader(context.Background(), server.URL+"/missing.csv", nil)
	require.ErrorIs(t, err, ErrRemoteNotFound)
}

func TestOpenWriterLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	writer, err := OpenWriter(context.Background(), "file://"+path, nil)
	require.NoError(t, err)
	_, err = io.WriteString(writer, "1,Ann,3.5\n")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader, err := OpenReader(context.Background(), path, nil)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "1,Ann,3.5\n", string(data))

	_, err = OpenWriter(context.Background(), "https://example.com/out.csv", nil)
	require.Error(t, err)
}
