package source

import "context"

// Reader yields the header once and rows until io.EOF.
type Reader interface {
	Header() []string
	Read() ([]string, error)
	Close() error
}

// Adapter is the common behaviour every source driver exposes.
type Adapter interface {
	Configure(any) error // driver-specific config ⇒ struct
	Open(context.Context) (Reader, error)
}
