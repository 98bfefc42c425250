package dirmeta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

func metaFile(dir, body string) *docmodel.Document {
	return docmodel.New(dir+"/_meta.yaml", dir+"/_meta.yaml", nil, docmodel.NewStringContent(body))
}

func contentDoc(source string, meta map[string]any) *docmodel.Document {
	return docmodel.New(source, source, meta, docmodel.NewStringContent("body"))
}

func run(t *testing.T, mod engine.Module, docs []*docmodel.Document) []*docmodel.Document {
	t.Helper()
	out, err := mod.Execute(context.Background(), nil, docs)
	require.NoError(t, err)
	return out
}

func byDest(docs []*docmodel.Document, dest string) *docmodel.Document {
	for _, d := range docs {
		if d.Destination() == dest {
			return d
		}
	}
	return nil
}

func TestMerge_NearestDirectoryWins(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "title: A\nauthor: Y\ninherited: true\n"),
		metaFile("a/b", "title: B\ninherited: true\n"),
		contentDoc("a/b/doc.md", map[string]any{"author": "X"}),
	}

	out := run(t, New(Options{}), docs)
	require.Len(t, out, 1)

	doc := out[0]
	title, _ := doc.GetString("title")
	author, _ := doc.GetString("author")
	require.Equal(t, "B", title)
	// The document's own author wins because neither file sets replace.
	require.Equal(t, "X", author)
}

func TestMerge_ReplaceOverridesOwnMetadata(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "author: Y\nreplace: true\n"),
		contentDoc("a/doc.md", map[string]any{"author": "X"}),
	}

	out := run(t, New(Options{}), docs)
	author, _ := out[0].GetString("author")
	require.Equal(t, "Y", author)
}

func TestMerge_NonInheritedDoesNotReachSubdirectories(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "section: top\n"),
		contentDoc("a/doc.md", nil),
		contentDoc("a/b/doc.md", nil),
	}

	out := run(t, New(Options{}), docs)

	section, ok := byDest(out, "a/doc.md").GetString("section")
	require.True(t, ok)
	require.Equal(t, "top", section)

	_, ok = byDest(out, "a/b/doc.md").Get("section")
	require.False(t, ok)
}

func TestMerge_SameDirectoryDeclarationOrderClaimsFirst(t *testing.T) {
	first := docmodel.New("a/_meta.yaml", "a/_meta.yaml", nil,
		docmodel.NewStringContent("color: red\n"))
	second := docmodel.New("a/_meta.yml", "a/_meta.yml", nil,
		docmodel.NewStringContent("color: blue\nextra: yes\n"))
	docs := []*docmodel.Document{first, second, contentDoc("a/doc.md", nil)}

	out := run(t, New(Options{}), docs)

	color, _ := out[0].GetString("color")
	require.Equal(t, "red", color)
	_, ok := out[0].Get("extra")
	require.True(t, ok)
}

func TestMerge_UnclaimedKeyFallsThroughToReplacingAncestor(t *testing.T) {
	// The nearer file cannot set author (replace false, document has it) and
	// does not claim the key, so the ancestor with replace=true still can.
	docs := []*docmodel.Document{
		metaFile("a", "author: ancestor\ninherited: true\nreplace: true\n"),
		metaFile("a/b", "author: nearer\n"),
		contentDoc("a/b/doc.md", map[string]any{"author": "own"}),
	}

	out := run(t, New(Options{}), docs)
	author, _ := out[0].GetString("author")
	require.Equal(t, "ancestor", author)
}

func TestMerge_RootMetadataAppliesToRootDocuments(t *testing.T) {
	docs := []*docmodel.Document{
		docmodel.New("_meta.yaml", "_meta.yaml", nil, docmodel.NewStringContent("site: conveyor\ninherited: true\n")),
		contentDoc("index.md", nil),
		contentDoc("a/b/deep.md", nil),
	}

	out := run(t, New(Options{}), docs)

	for _, dest := range []string{"index.md", "a/b/deep.md"} {
		site, ok := byDest(out, dest).GetString("site")
		require.True(t, ok, dest)
		require.Equal(t, "conveyor", site)
	}
}

func TestMerge_MetadataFilesDroppedByDefault(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "title: A\n"),
		contentDoc("a/doc.md", nil),
	}

	out := run(t, New(Options{}), docs)
	require.Len(t, out, 1)
	require.Equal(t, "a/doc.md", out[0].Destination())
}

func TestMerge_PassSettingPreservesMetadataFiles(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "title: A\n"),
		contentDoc("a/doc.md", nil),
	}

	ec := &engine.ExecContext{Settings: engine.Settings{PreserveMetadataFiles: true}}
	out, err := New(Options{}).Execute(context.Background(), ec, docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, byDest(out, "a/_meta.yaml"))

	// The same module drops them when the pass setting is off.
	out, err = New(Options{}).Execute(context.Background(), &engine.ExecContext{}, docs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Nil(t, byDest(out, "a/_meta.yaml"))
}

func TestMerge_DefaultInheritedOption(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "section: top\n"),
		contentDoc("a/b/doc.md", nil),
	}

	out := run(t, New(Options{DefaultInherited: true}), docs)
	section, ok := out[0].GetString("section")
	require.True(t, ok)
	require.Equal(t, "top", section)
}

func TestMerge_FlagsAreNotMergedAsValues(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "title: A\ninherited: true\nreplace: true\n"),
		contentDoc("a/doc.md", nil),
	}

	out := run(t, New(Options{}), docs)
	_, ok := out[0].Get("inherited")
	require.False(t, ok)
	_, ok = out[0].Get("replace")
	require.False(t, ok)
}

func TestMerge_NoApplicableRegistrationsReturnsSameDocument(t *testing.T) {
	doc := contentDoc("a/doc.md", map[string]any{"k": "v"})
	out := run(t, New(Options{}), []*docmodel.Document{doc})
	require.Same(t, doc, out[0])
}

func TestMerge_SyntheticDocumentUntouched(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", "title: A\n"),
		docmodel.Synthetic("virtual.html", nil, docmodel.NewStringContent("x")),
	}

	out := run(t, New(Options{}), docs)
	require.Len(t, out, 1)
	require.Empty(t, out[0].Keys())
}

func TestMerge_InvalidMetadataFileIsContentError(t *testing.T) {
	docs := []*docmodel.Document{
		metaFile("a", ":\n:bad"),
		contentDoc("a/doc.md", nil),
	}

	_, err := New(Options{}).Execute(context.Background(), nil, docs)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryContent))
}
