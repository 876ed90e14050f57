package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"srtvoice/internal/storage"
)

var ErrLocked = errors.New("output is locked by another run")

// session is one synthesis run: its id, its scratch directory and the
// advisory lock on the output artifacts.
type session struct {
	id         string
	scratchDir string
	lock       *flock.Flock
	storage    *storage.LocalStorage
}

func newSession(store *storage.LocalStorage, outputPath string, withScratch bool) (*session, error) {
	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, outputPath)
	}

	s := &session{
		id:      uuid.NewString(),
		lock:    lock,
		storage: store,
	}

	if withScratch {
		dir, err := store.ScratchDir(s.id)
		if err != nil {
			_ = s.release(false)
			return nil, err
		}
		s.scratchDir = dir
	}

	return s, nil
}

func (s *session) release(keepScratch bool) error {
	var errs []error
	if s.scratchDir != "" && !keepScratch {
		errs = append(errs, s.storage.RemoveScratch(s.scratchDir))
	}
	errs = append(errs, s.lock.Unlock())
	if err := os.Remove(s.lock.Path()); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
