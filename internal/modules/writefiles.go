package modules

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/observability"
)

// WriteFiles materializes every document with content to its destination
// under the output root. Documents pass through unchanged so validation
// phases still see the full collection.
func WriteFiles() engine.Module {
	return engine.ModuleFunc("write-files", func(ctx context.Context, ec *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		written := 0
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if docmodel.IsNullContent(doc.Content()) {
				continue
			}

			data, err := docmodel.ReadAll(ctx, doc.Content())
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "read content for write").
					WithContext("destination", doc.Destination()).
					Build()
			}
			if err := ec.FS.Write(doc.Destination(), data); err != nil {
				return nil, err
			}
			written++
		}
		observability.DebugContext(ctx, "wrote output files", slog.Int("count", written))
		return docs, nil
	})
}
