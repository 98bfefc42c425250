package modules

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// Markdown renders markdown documents to HTML and rewrites their destination
// extension to .html. Non-markdown documents pass through unchanged.
//
// GFM extensions are enabled; raw HTML in the source is passed through since
// the input is trusted site content, not user submissions.
func Markdown() engine.Module {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	return engine.ModuleFunc("markdown", func(ctx context.Context, _ *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		out := make([]*docmodel.Document, 0, len(docs))
		for _, doc := range docs {
			if !isMarkdown(doc.Destination()) || docmodel.IsNullContent(doc.Content()) {
				out = append(out, doc)
				continue
			}

			source, err := docmodel.ReadAll(ctx, doc.Content())
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "read markdown source").
					WithContext("source", doc.Source()).
					Build()
			}

			var rendered bytes.Buffer
			if err := md.Convert(source, &rendered); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "render markdown").
					WithContext("source", doc.Source()).
					Build()
			}

			dest := replaceExt(doc.Destination(), ".html")
			out = append(out,
				doc.Clone(nil, docmodel.NewBufferContent(rendered.Bytes())).WithDestination(dest))
		}
		return out, nil
	})
}

func isMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
