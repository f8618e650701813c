package TupleDB

import (
	"context"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/db"
	"github.com/nickyhof/TupleDB/op"
	"github.com/nickyhof/TupleDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
	store       *db.Store
	writer      *op.Writer
}

// Open loads every table from persistence.
func Open(persistence *ps.Persistence) (*Instance, error) {
	store, err := op.LoadStore(persistence)
	if err != nil {
		return nil, err
	}

	return &Instance{
		Persistence: persistence,
		store:       store,
		writer:      op.NewWriter(persistence),
	}, nil
}

// Engine returns an engine over the instance's tables that commits as
// identity. Engines share one store and are not safe for concurrent use.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.store, instance.writer, identity)
}

func (instance *Instance) Store() *db.Store {
	return instance.store
}

// Reload rereads the tables from HEAD.
func (instance *Instance) Reload() error {
	store, err := op.LoadStore(instance.Persistence)
	if err != nil {
		return err
	}
	instance.store.Replace(store)
	return nil
}

// Import copies a schema file and its data files from base and reloads.
func (instance *Instance) Import(ctx context.Context, base string, cfg *ps.RemoteConfig, identity core.Identity) (ps.Transaction, error) {
	txn, _, err := instance.Persistence.ImportRemote(ctx, base, cfg, identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	return txn, instance.Reload()
}

// Restore brings the data back to a snapshot or transaction and reloads.
func (instance *Instance) Restore(ref string, identity core.Identity) (ps.Transaction, error) {
	txn, store, err := op.GetDatabase(instance.Persistence).Restore(ref, identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	instance.store.Replace(store)
	return txn, nil
}
