package session

import (
	"context"
	"errors"
	"fmt"
)

// Persister stores a completed session. It is called at most once per session.
type Persister interface {
	RecordSession(ctx context.Context, rec Record) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, rec Record) error

func (f PersisterFunc) RecordSession(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// MultiPersister fans a record out to every member and joins their errors.
// A failing member does not stop the others.
type MultiPersister []Persister

func (m MultiPersister) RecordSession(ctx context.Context, rec Record) error {
	var errs []error
	for i, p := range m {
		if p == nil {
			continue
		}
		if err := p.RecordSession(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("persister %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
