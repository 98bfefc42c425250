package modules

import (
	"context"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
)

// SyntheticDoc describes one document to inject without a source file.
type SyntheticDoc struct {
	Destination string
	Metadata    map[string]any
	Content     string
}

// Synthetic appends fabricated documents to the collection. Useful for
// generated artifacts like feeds or redirect stubs that have no input file.
func Synthetic(specs ...SyntheticDoc) engine.Module {
	return engine.ModuleFunc("synthetic", func(_ context.Context, _ *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		out := append([]*docmodel.Document{}, docs...)
		for _, s := range specs {
			var content docmodel.ContentRef
			if s.Content != "" {
				content = docmodel.NewStringContent(s.Content)
			}
			out = append(out, docmodel.Synthetic(s.Destination, s.Metadata, content))
		}
		return out, nil
	})
}
