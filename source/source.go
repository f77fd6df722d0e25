// Package source provides configuration documents and their change
// signatures to the reload loop.
package source

import (
	"context"
	"time"

	"github.com/trickstertwo/hlog/config"
)

// Signature identifies one version of a source. Two reads returning equal
// signatures are assumed to return the same document.
type Signature struct {
	ModTime time.Time
	Size    int64
}

func (s Signature) Equal(o Signature) bool {
	return s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

func (s Signature) IsZero() bool { return s.ModTime.IsZero() && s.Size == 0 }

// Source is a configuration document that can change over time.
type Source interface {
	// Signature is cheap and is called every poll interval.
	Signature(ctx context.Context) (Signature, error)
	Read(ctx context.Context) ([]byte, error)
	Format() config.Format
}

// Watcher is implemented by sources that can signal a probable change
// before the next poll. A signal only ends the sleep early; the signature
// still decides whether to reload.
type Watcher interface {
	Watch(ctx context.Context, onErr func(error)) (<-chan struct{}, error)
}
