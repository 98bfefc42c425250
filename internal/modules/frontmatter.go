package modules

import (
	"context"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	"git.home.luguber.info/inful/conveyor/internal/frontmatter"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// FrontMatter extracts `---` delimited YAML front matter from each document's
// content into its metadata and rebinds the content to the remaining body.
// Documents without front matter or without content pass through unchanged.
func FrontMatter() engine.Module {
	return engine.ModuleFunc("front-matter", func(ctx context.Context, _ *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		out := make([]*docmodel.Document, 0, len(docs))
		for _, doc := range docs {
			if docmodel.IsNullContent(doc.Content()) {
				out = append(out, doc)
				continue
			}

			data, err := docmodel.ReadAll(ctx, doc.Content())
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "read content").
					WithContext("source", doc.Source()).
					Build()
			}

			meta, body, had, err := frontmatter.Split(data)
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "split front matter").
					WithContext("source", doc.Source()).
					Build()
			}
			if !had {
				out = append(out, doc)
				continue
			}

			fields, err := frontmatter.Parse(meta)
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "parse front matter").
					WithContext("source", doc.Source()).
					Build()
			}

			out = append(out, doc.Clone(fields, docmodel.NewBufferContent(body)))
		}
		return out, nil
	})
}
