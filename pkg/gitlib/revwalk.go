package gitlib

import (
	"errors"
	"fmt"
	"io"

	git2go "github.com/libgit2/git2go/v34"
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	if err := w.walk.Push(hash.ToOid()); err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// Next returns the next commit hash in the walk, or io.EOF when done.
func (w *RevWalk) Next() (Hash, error) {
	oid := new(git2go.Oid)

	if err := w.walk.Next(oid); err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
			return Hash{}, io.EOF
		}

		return Hash{}, fmt.Errorf("revwalk next: %w", err)
	}

	return HashFromOid(oid), nil
}

// ForEach calls cb with every commit of the walk until cb returns an error.
// The commit is freed after cb returns.
func (w *RevWalk) ForEach(cb func(*Commit) error) error {
	for {
		hash, err := w.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		commit, err := w.repo.repo.LookupCommit(hash.ToOid())
		if err != nil {
			return fmt.Errorf("lookup commit %s: %w", hash.Short(), err)
		}

		wrapped := &Commit{commit: commit}
		cbErr := cb(wrapped)
		wrapped.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
