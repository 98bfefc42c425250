package modules

import (
	"context"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// LinkCheck validates internal links in HTML documents: every href/src that
// points inside the site must resolve to a document in the current
// collection. External links, anchors and mailto targets are not followed.
// Intended for the validation phase; it never mutates the collection.
func LinkCheck() engine.Module {
	return engine.ModuleFunc("link-check", func(ctx context.Context, _ *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		known := make(map[string]struct{}, len(docs))
		for _, doc := range docs {
			known[path.Clean(doc.Destination())] = struct{}{}
		}

		var broken []string
		for _, doc := range docs {
			if strings.ToLower(path.Ext(doc.Destination())) != ".html" {
				continue
			}
			if docmodel.IsNullContent(doc.Content()) {
				continue
			}

			body, err := doc.Open(ctx)
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "open document for link check").
					WithContext("destination", doc.Destination()).
					Build()
			}
			root, err := html.Parse(body)
			closeErr := body.Close()
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryContent, "parse html").
					WithContext("destination", doc.Destination()).
					Build()
			}
			if closeErr != nil {
				return nil, closeErr
			}

			for _, ref := range collectRefs(root) {
				target, internal := resolveInternal(doc.Destination(), ref)
				if !internal {
					continue
				}
				if _, ok := known[target]; !ok {
					broken = append(broken, doc.Destination()+" -> "+ref)
				}
			}
		}

		if len(broken) > 0 {
			sort.Strings(broken)
			return nil, ferrors.ValidationError("broken internal links").
				WithContext("count", len(broken)).
				WithContext("links", strings.Join(broken, ", ")).
				Build()
		}
		return docs, nil
	})
}

// collectRefs walks the parse tree gathering href and src attribute values.
func collectRefs(root *html.Node) []string {
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return refs
}

// resolveInternal maps a reference found in from's content to a cleaned
// site-relative destination path. The second return is false for external,
// anchor-only, and non-navigational references.
func resolveInternal(from, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, prefix := range []string{"http://", "https://", "//", "mailto:", "tel:", "data:", "javascript:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	// Strip fragment and query before resolving.
	if idx := strings.IndexAny(ref, "#?"); idx >= 0 {
		ref = ref[:idx]
	}
	if ref == "" {
		return "", false
	}

	if strings.HasPrefix(ref, "/") {
		return path.Clean(strings.TrimPrefix(ref, "/")), true
	}
	return path.Join(path.Dir(from), ref), true
}
