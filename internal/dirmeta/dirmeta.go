// Package dirmeta implements directory-scoped metadata inheritance: metadata
// files registered in a directory apply their keys to documents in that
// directory, and optionally (when inherited) to documents below it.
//
// Precedence is exact and deterministic: a document's own metadata wins over
// same-directory registrations in declaration order, which win over inherited
// ancestor registrations nearest-first. A registration with replace=true may
// override keys the document already has; one with replace=false may not.
package dirmeta

import (
	"context"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// Reserved keys inside a metadata file that carry merge flags rather than
// metadata values.
const (
	keyInherited = "inherited"
	keyReplace   = "replace"
)

// Options configure the directory metadata module.
type Options struct {
	// Predicate selects metadata-bearing documents. Defaults to matching
	// the base names "_meta.yaml" and "_meta.yml".
	Predicate func(*docmodel.Document) bool

	// DefaultInherited applies when a metadata file does not set the
	// "inherited" flag itself.
	DefaultInherited bool

	// DefaultReplace applies when a metadata file does not set the
	// "replace" flag itself.
	DefaultReplace bool
}

func defaultPredicate(d *docmodel.Document) bool {
	base := path.Base(d.Source())
	return base == "_meta.yaml" || base == "_meta.yml"
}

// registration is one metadata file bound to its directory. Priority is the
// declaration order within the pass's input collection; lower values win
// first claim on a key.
type registration struct {
	dir       string
	priority  int
	inherited bool
	replace   bool
	values    map[string]any
}

// New creates the directory metadata module.
func New(opts Options) engine.Module {
	predicate := opts.Predicate
	if predicate == nil {
		predicate = defaultPredicate
	}

	return engine.ModuleFunc("directory-meta", func(ctx context.Context, ec *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		registry, err := buildRegistry(ctx, docs, predicate, opts)
		if err != nil {
			return nil, err
		}

		// Whether metadata files survive into the output set is a per-pass
		// setting, not a module option.
		preserve := ec != nil && ec.Settings.PreserveMetadataFiles

		out := make([]*docmodel.Document, 0, len(docs))
		for _, doc := range docs {
			if predicate(doc) && !preserve {
				continue
			}
			out = append(out, applyRegistrations(doc, registry))
		}
		return out, nil
	})
}

// buildRegistry parses every metadata-bearing document and indexes it by
// directory, ordered by declaration priority. Sorting happens here, before
// any merge, so results never depend on concurrent discovery order.
func buildRegistry(ctx context.Context, docs []*docmodel.Document, predicate func(*docmodel.Document) bool, opts Options) (map[string][]registration, error) {
	registry := make(map[string][]registration)
	for i, doc := range docs {
		if !predicate(doc) {
			continue
		}
		data, err := docmodel.ReadAll(ctx, doc.Content())
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryContent, "read metadata file").
				WithContext("path", doc.Source()).
				Build()
		}
		values := map[string]any{}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryContent, "parse metadata file").
				WithContext("path", doc.Source()).
				Build()
		}

		reg := registration{
			dir:       doc.SourceDir(),
			priority:  i,
			inherited: opts.DefaultInherited,
			replace:   opts.DefaultReplace,
			values:    values,
		}
		if v, ok := values[keyInherited].(bool); ok {
			reg.inherited = v
			delete(values, keyInherited)
		}
		if v, ok := values[keyReplace].(bool); ok {
			reg.replace = v
			delete(values, keyReplace)
		}
		registry[reg.dir] = append(registry[reg.dir], reg)
	}
	for dir := range registry {
		regs := registry[dir]
		sort.SliceStable(regs, func(i, j int) bool { return regs[i].priority < regs[j].priority })
	}
	return registry, nil
}

// applyRegistrations resolves the staged delta for one target document and
// returns its clone, or the document itself when nothing applies.
func applyRegistrations(doc *docmodel.Document, registry map[string][]registration) *docmodel.Document {
	if doc.Source() == "" {
		// Synthetic documents have no directory to resolve against.
		return doc
	}

	claimed := make(map[string]struct{})
	delta := make(map[string]any)

	dirs := ancestorChain(doc.SourceDir())
	for depth, dir := range dirs {
		for _, reg := range registry[dir] {
			if depth > 0 && !reg.inherited {
				continue
			}
			for key, value := range reg.values {
				if _, taken := claimed[key]; taken {
					continue
				}
				if _, has := doc.Get(key); has && !reg.replace {
					continue
				}
				claimed[key] = struct{}{}
				delta[key] = value
			}
		}
	}

	if len(delta) == 0 {
		return doc
	}
	return doc.Clone(delta, nil)
}

// ancestorChain lists dir and its ancestors nearest-first, ending at the
// input root ".".
func ancestorChain(dir string) []string {
	dir = path.Clean(dir)
	var chain []string
	for {
		chain = append(chain, dir)
		if dir == "." || dir == "/" {
			return chain
		}
		parent := path.Dir(dir)
		if parent == dir {
			return chain
		}
		dir = parent
	}
}
