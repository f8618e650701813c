package ps

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/nickyhof/TupleDB/core"
)

// DefaultSchemaFile is the catalog file name inside the data directory.
const DefaultSchemaFile = "schema.txt"

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrFileNotFound   = errors.New("file not found")
)

// SystemIdentity signs commits the persistence layer makes on its own, such
// as importing a plain data folder.
var SystemIdentity = core.Identity{Name: "TupleDB", Email: "tupledb@localhost"}

type Persistence struct {
	repo         *git.Repository
	mu           sync.RWMutex
	isMemoryMode bool
	schemaFile   string
	identity     core.Identity
	logger       *slog.Logger
}

type Option func(*Persistence)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Persistence) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSchemaFile changes the catalog file name (default schema.txt).
func WithSchemaFile(name string) Option {
	return func(p *Persistence) {
		if name != "" {
			p.schemaFile = name
		}
	}
}

// WithIdentity sets the identity used for commits the persistence layer makes
// itself.
func WithIdentity(identity core.Identity) Option {
	return func(p *Persistence) {
		if identity.Name != "" {
			p.identity = identity
		}
	}
}

func newPersistence(repo *git.Repository, memoryMode bool, opts []Option) *Persistence {
	p := &Persistence{
		repo:         repo,
		isMemoryMode: memoryMode,
		schemaFile:   DefaultSchemaFile,
		identity:     SystemIdentity,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

func (p *Persistence) SchemaFile() string {
	return p.schemaFile
}

func (p *Persistence) IsMemoryMode() bool {
	return p.isMemoryMode
}

func NewMemoryPersistence(opts ...Option) (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return newPersistence(repo, true, opts), nil
}

// NewFilePersistence opens the repository in baseDir, creating it if needed.
// A directory that already holds a schema file and CSV data but no repository
// is imported as the first commit.
func NewFilePersistence(baseDir string, opts ...Option) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(filepath.Join(baseDir, ".git")); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	p := newPersistence(repo, false, opts)

	// a repository without commits has never imported the folder, including
	// one left behind by an import that failed
	if _, err := repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		if _, err := p.importFolder(wt); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", baseDir, err)
		}
	}

	return p, nil
}

// importFolder commits the schema file and the CSV file of every table it
// declares, as found in the worktree. Nothing is committed when there is no
// schema file.
func (p *Persistence) importFolder(wt billy.Filesystem) (Transaction, error) {
	schema, err := util.ReadFile(wt, p.schemaFile)
	if errors.Is(err, os.ErrNotExist) {
		return Transaction{}, nil
	}
	if err != nil {
		return Transaction{}, err
	}

	defs, err := ParseSchemaFile(schema)
	if err != nil {
		return Transaction{}, err
	}

	batch, err := p.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}
	if err := batch.AddWrite(p.schemaFile, schema); err != nil {
		return Transaction{}, err
	}

	for _, def := range defs {
		data, err := util.ReadFile(wt, DataFile(def.Name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Transaction{}, err
		}
		if err := batch.AddWrite(DataFile(def.Name), data); err != nil {
			return Transaction{}, err
		}
	}

	txn, err := batch.Commit(p.identity, fmt.Sprintf("Import %d table(s)", len(defs)))
	if err != nil {
		return Transaction{}, err
	}

	p.logger.Info("imported data folder", "tables", len(defs), "transaction", txn.Id)
	return txn, nil
}
