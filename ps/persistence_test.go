package ps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/TupleDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

const studentsSchemaFile = "Students(sid:Integer, name:String, gpa:Double)\nCourses(cid:Integer, title:String)\n"

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()
	persistence, err := NewMemoryPersistence()
	require.NoError(t, err)
	return persistence
}

func TestNewMemoryPersistence(t *testing.T) {
	persistence := newTestPersistence(t)

	assert.True(t, persistence.IsInitialized())
	assert.True(t, persistence.IsMemoryMode())
	assert.Equal(t, DefaultSchemaFile, persistence.SchemaFile())
	assert.Empty(t, persistence.LatestTransaction().Id)
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence *Persistence

	assert.False(t, persistence.IsInitialized())
	_, err := persistence.ReadFileDirect("schema.txt")
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestWithSchemaFile(t *testing.T) {
	persistence, err := NewMemoryPersistence(WithSchemaFile("catalog.txt"))
	require.NoError(t, err)

	_, err = persistence.WriteFileDirect("catalog.txt", []byte(studentsSchemaFile), testIdentity, "catalog")
	require.NoError(t, err)

	defs, err := persistence.ReadSchema()
	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

func TestNewFilePersistenceImportsFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.txt"), []byte("\uFEFF"+studentsSchemaFile), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Students.csv"), []byte("1,Ann,3.5\n2, Bo ,2.9\n"), 0644))

	persistence, err := NewFilePersistence(dir)
	require.NoError(t, err)
	assert.False(t, persistence.IsMemoryMode())

	log, err := persistence.Log(0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, SystemIdentity.String(), log[0].Author)

	rows, err := persistence.ReadRows("Students")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Ann", "3.5"}, {"2", " Bo ", "2.9"}}, rows)

	rows, err = persistence.ReadRows("Courses")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNewFilePersistenceRetriesFailedImport(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.txt")
	require.NoError(t, os.WriteFile(schemaPath, []byte("Students(sid:Integr, name:String)\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Students.csv"), []byte("1,Ann\n"), 0644))

	_, err := NewFilePersistence(dir)
	require.ErrorIs(t, err, core.ErrMalformedSchema)
	assert.DirExists(t, filepath.Join(dir, ".git"))

	require.NoError(t, os.WriteFile(schemaPath, []byte("Students(sid:Integer, name:String)\n"), 0644))

	persistence, err := NewFilePersistence(dir)
	require.NoError(t, err)

	defs, err := persistence.ReadSchema()
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Students", defs[0].Name)

	rows, err := persistence.ReadRows("Students")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Ann"}}, rows)
}

func TestNewFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir)
	require.NoError(t, err)

	defs, err := persistence.ReadSchema()
	require.NoError(t, err)
	assert.Empty(t, defs)

	_, err = persistence.WriteFileDirect("schema.txt", []byte(studentsSchemaFile), testIdentity, "schema")
	require.NoError(t, err)
	_, err = persistence.AppendRows("Students", [][]string{{"1", "Ann", "3.5"}}, testIdentity)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "Students.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,Ann,3.5\n", string(data))

	reopened, err := NewFilePersistence(dir)
	require.NoError(t, err)

	rows, err := reopened.ReadRows("Students")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Ann", "3.5"}}, rows)
}

func TestNewFilePersistenceRejectsBadSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.txt"), []byte("Students(sid:Number)\n"), 0644))

	_, err := NewFilePersistence(dir)
	require.ErrorIs(t, err, core.ErrMalformedSchema)
}
