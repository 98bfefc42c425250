package docmodel

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrNoContent is returned when opening a document backed by the Null content
// reference. It is distinct from "content unchanged": a document that was
// never given content, or was cloned with NullContent(), has explicitly no
// bytes and cannot be opened.
var ErrNoContent = errors.New("document has no content")

// ContentRef is the abstraction over a document's byte payload, decoupled
// from its metadata. A reference, once constructed, yields the same bytes on
// every read within one execution. References are immutable and freely shared
// across documents; lifetime is handled by the garbage collector.
type ContentRef interface {
	// Open materializes the content as a byte stream. Callers own the
	// returned reader and must close it.
	Open(ctx context.Context) (io.ReadCloser, error)
}

type nullContent struct{}

func (nullContent) Open(context.Context) (io.ReadCloser, error) {
	return nil, ErrNoContent
}

var theNullContent ContentRef = nullContent{}

// NullContent returns the sentinel reference for "explicitly no content".
// Passing it to Document.Clone always takes effect, unlike a nil reference
// which means "keep the prior content".
func NullContent() ContentRef {
	return theNullContent
}

// IsNullContent reports whether ref is the Null sentinel.
func IsNullContent(ref ContentRef) bool {
	return ref == theNullContent
}

type bufferContent struct {
	data []byte
}

func (c *bufferContent) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(c.data)), nil
}

// NewBufferContent creates a content reference over already-resident bytes.
// The slice must not be mutated after the call.
func NewBufferContent(data []byte) ContentRef {
	return &bufferContent{data: data}
}

// NewStringContent creates a content reference over a string.
func NewStringContent(s string) ContentRef {
	return &bufferContent{data: []byte(s)}
}

// OpenFunc opens the underlying stream of a lazy content reference.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

type streamContent struct {
	open OpenFunc

	mu   sync.Mutex
	done bool
	data []byte
	err  error
}

// NewStreamContent creates a lazily-materialized content reference. The
// stream is read fully on first Open and cached, so every subsequent read
// observes identical bytes even if the underlying source changes mid-pass.
// A read aborted by context cancellation is not cached: references can
// outlive a canceled pass (via the incremental cache), and the next pass
// must be able to retry the read.
func NewStreamContent(open OpenFunc) ContentRef {
	return &streamContent{open: open}
}

func (c *streamContent) Open(ctx context.Context) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.done {
		data, err := c.materialize(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.data, c.err = data, err
		c.done = true
	}
	if c.err != nil {
		return nil, c.err
	}
	return io.NopCloser(bytes.NewReader(c.data)), nil
}

func (c *streamContent) materialize(ctx context.Context) ([]byte, error) {
	rc, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// ReadAll opens ref and reads it fully. Convenience for modules that need
// resident bytes.
func ReadAll(ctx context.Context, ref ContentRef) ([]byte, error) {
	rc, err := ref.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
