// Package docmodel defines the immutable document value that flows through
// pipeline module chains.
//
// Documents are never mutated in place. Every transform produces a new
// document via Clone: metadata deltas overlay the prior mapping, and the
// content reference is either kept, replaced, or explicitly nulled out via
// the NullContent sentinel. Two documents may share a content reference;
// clone is a cheap shallow operation.
package docmodel

import (
	"context"
	"io"
	"maps"
	"path"
	"sort"
)

// Document is an immutable content value with layered metadata.
//
// Identity is by pointer: the scheduler and caches compare documents by
// reference, never by deep equality. Two documents with identical metadata
// are still distinct entities.
type Document struct {
	source  string // source path; empty for synthetic documents
	dest    string
	meta    map[string]any
	content ContentRef
}

// New creates a document. meta may be nil; a nil content reference means the
// document has explicitly no content.
func New(source, destination string, meta map[string]any, content ContentRef) *Document {
	m := make(map[string]any, len(meta))
	maps.Copy(m, meta)
	if content == nil {
		content = NullContent()
	}
	return &Document{
		source:  source,
		dest:    destination,
		meta:    m,
		content: content,
	}
}

// Synthetic creates a document with no source path.
func Synthetic(destination string, meta map[string]any, content ContentRef) *Document {
	return New("", destination, meta, content)
}

// Source returns the source path, or "" for synthetic documents.
func (d *Document) Source() string {
	return d.source
}

// Destination returns the destination path.
func (d *Document) Destination() string {
	return d.dest
}

// SourceDir returns the directory of the source path, or "." for synthetic
// documents.
func (d *Document) SourceDir() string {
	return path.Dir(d.source)
}

// Get looks up a single metadata key. No fallback is applied.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.meta[key]
	return v, ok
}

// GetString looks up a metadata key and returns it as a string.
func (d *Document) GetString(key string) (string, bool) {
	if v, ok := d.meta[key]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Keys returns all metadata keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.meta))
	for k := range d.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metadata returns a copy of the metadata mapping.
func (d *Document) Metadata() map[string]any {
	m := make(map[string]any, len(d.meta))
	maps.Copy(m, d.meta)
	return m
}

// Content returns the document's content reference.
func (d *Document) Content() ContentRef {
	return d.content
}

// Open materializes the document's content. It fails with ErrNoContent when
// the document is backed by the Null reference.
func (d *Document) Open(ctx context.Context) (io.ReadCloser, error) {
	return d.content.Open(ctx)
}

// Clone returns a new document overlaying delta on the prior metadata.
// Unspecified keys keep their prior values; duplicate keys within delta are
// last-write-wins. A nil content keeps the prior reference; any non-nil
// reference, including the NullContent sentinel, replaces it.
func (d *Document) Clone(delta map[string]any, content ContentRef) *Document {
	m := make(map[string]any, len(d.meta)+len(delta))
	maps.Copy(m, d.meta)
	maps.Copy(m, delta)
	if content == nil {
		content = d.content
	}
	return &Document{
		source:  d.source,
		dest:    d.dest,
		meta:    m,
		content: content,
	}
}

// WithDestination returns a clone with a new destination path. Metadata and
// content are shared with the receiver.
func (d *Document) WithDestination(destination string) *Document {
	return &Document{
		source:  d.source,
		dest:    destination,
		meta:    d.meta,
		content: d.content,
	}
}
