package sink

import (
	"context"
	"fmt"
)

// Adapter is the common behaviour every sink exposes.
//
// A run calls Open once with the trimmed header, Push once per row, and
// Commit when every row has been pushed. Close is always called; output that
// was not committed is discarded where the backend allows it.
type Adapter interface {
	Configure(any) error // driver-specific config ⇒ struct
	Open(ctx context.Context, header []string) error
	Push(row []string) error
	Commit() error
	Close() error // idempotent
}

// Local marks sinks whose Commit only publishes output staged on this
// machine (a temp file rename, a buffer flush). They are committed after
// every other sink so a failed remote commit leaves them unpublished.
type Local interface {
	Local()
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
