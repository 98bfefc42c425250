package modules

import (
	"context"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
)

// Slug normalizes every destination path into URL-safe form: diacritics are
// stripped, letters lowercased, and runs of non-alphanumerics collapsed into
// single hyphens. The extension is preserved. Documents whose destination is
// already in slug form pass through unchanged.
func Slug() engine.Module {
	return engine.ModuleFunc("slug", func(_ context.Context, _ *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		out := make([]*docmodel.Document, 0, len(docs))
		for _, doc := range docs {
			dest := slugPath(doc.Destination())
			if dest == doc.Destination() {
				out = append(out, doc)
				continue
			}
			out = append(out, doc.WithDestination(dest))
		}
		return out, nil
	})
}

var deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugPath slugs each path segment independently, keeping the final
// segment's extension intact.
func slugPath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		if i == len(segments)-1 {
			ext := path.Ext(segment)
			segments[i] = slugSegment(strings.TrimSuffix(segment, ext)) + strings.ToLower(ext)
			continue
		}
		segments[i] = slugSegment(segment)
	}
	return strings.Join(segments, "/")
}

func slugSegment(s string) string {
	if stripped, _, err := transform.String(deaccenter, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
