package ps

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/nickyhof/TupleDB/core"
)

// Snapshot tags the given transaction, or HEAD when asof is nil.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to snapshot: %w", err)
		}
		hash = headRef.Hash()
	}

	if _, err := persistence.repo.CreateTag(name, hash, nil); err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}

	persistence.logger.Debug("snapshot", "name", name, "transaction", hash.String())
	return nil
}

// Snapshots lists snapshot names in sorted order.
func (persistence *Persistence) Snapshots() ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	tags, err := persistence.repo.Tags()
	if err != nil {
		return nil, err
	}
	defer tags.Close()

	var names []string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	sort.Strings(names)
	return names, err
}

// RestoreTo commits the data as it was at ref, a snapshot name or a
// transaction id (full or abbreviated). History is kept: the restore is a new
// transaction on top of HEAD.
func (persistence *Persistence) RestoreTo(ref string, identity core.Identity) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	hash, err := persistence.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return Transaction{}, fmt.Errorf("unknown snapshot or transaction %s: %w", ref, err)
	}

	commit, err := persistence.repo.CommitObject(*hash)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get commit %s: %w", ref, err)
	}

	txn, err := persistence.createCommitDirect(commit.TreeHash, identity, fmt.Sprintf("Restore to %s", ref))
	if err != nil {
		return Transaction{}, err
	}

	if err := persistence.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	persistence.logger.Info("restored", "ref", ref, "transaction", txn.Id)
	return txn, nil
}
