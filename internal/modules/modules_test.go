package modules

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/incremental"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/vfs"
)

func newExecContext(t *testing.T) (*engine.ExecContext, func(name, content string), func(name string) string) {
	t.Helper()
	input := memfs.New()
	output := memfs.New()
	fs := vfs.New(input, output)

	ec := &engine.ExecContext{
		PassID:   "test-pass",
		FS:       fs,
		Cache:    incremental.NewCache(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: metrics.NoopRecorder{},
	}

	writeInput := func(name, content string) {
		require.NoError(t, util.WriteFile(input, name, []byte(content), 0o644))
	}
	readOutput := func(name string) string {
		data, err := util.ReadFile(output, name)
		require.NoError(t, err)
		return string(data)
	}
	return ec, writeInput, readOutput
}

func readDoc(t *testing.T, doc *docmodel.Document) string {
	t.Helper()
	data, err := docmodel.ReadAll(context.Background(), doc.Content())
	require.NoError(t, err)
	return string(data)
}

func TestReadFiles_GlobsAndReads(t *testing.T) {
	ec, writeInput, _ := newExecContext(t)
	writeInput("posts/a.md", "# A")
	writeInput("posts/b.md", "# B")
	writeInput("assets/x.css", "body{}")

	docs, err := ReadFiles("posts/**/*.md").Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "posts/a.md", docs[0].Source())
	require.Equal(t, "# A", readDoc(t, docs[0]))
}

func TestReadFiles_AppendsToExistingCollection(t *testing.T) {
	ec, writeInput, _ := newExecContext(t)
	writeInput("a.md", "x")

	seed := docmodel.Synthetic("seed.html", nil, docmodel.NewStringContent("s"))
	docs, err := ReadFiles("*.md").Execute(context.Background(), ec, []*docmodel.Document{seed})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Same(t, seed, docs[0])
}

func TestReadFiles_ReusesCachedDocumentWhenUnchanged(t *testing.T) {
	ec, writeInput, _ := newExecContext(t)
	writeInput("a.md", "stable")

	first, err := ReadFiles("*.md").Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	second, err := ReadFiles("*.md").Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	require.Same(t, first[0], second[0])
}

func TestReadFiles_ChangedFileInvalidatesCacheEntry(t *testing.T) {
	ec, writeInput, _ := newExecContext(t)
	writeInput("a.md", "v1")

	first, err := ReadFiles("*.md").Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	require.Equal(t, "v1", readDoc(t, first[0]))

	writeInput("a.md", "v2 longer")
	second, err := ReadFiles("*.md").Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	require.NotSame(t, first[0], second[0])
	require.Equal(t, "v2 longer", readDoc(t, second[0]))
}

func TestFrontMatter_ExtractsIntoMetadata(t *testing.T) {
	doc := docmodel.New("a.md", "a.md", nil,
		docmodel.NewStringContent("---\ntitle: Hello\ndraft: true\n---\n# Body\n"))

	docs, err := FrontMatter().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)

	title, _ := docs[0].GetString("title")
	require.Equal(t, "Hello", title)
	draft, _ := docs[0].Get("draft")
	require.Equal(t, true, draft)
	require.Equal(t, "# Body\n", readDoc(t, docs[0]))
}

func TestFrontMatter_NoDelimiterPassesThrough(t *testing.T) {
	doc := docmodel.New("a.md", "a.md", nil, docmodel.NewStringContent("# Body\n"))

	docs, err := FrontMatter().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Same(t, doc, docs[0])
}

func TestFrontMatter_NullContentPassesThrough(t *testing.T) {
	doc := docmodel.Synthetic("a.md", nil, nil)

	docs, err := FrontMatter().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Same(t, doc, docs[0])
}

func TestMarkdown_RendersAndRewritesDestination(t *testing.T) {
	doc := docmodel.New("a.md", "posts/a.md", nil, docmodel.NewStringContent("# Title\n\nText.\n"))

	docs, err := Markdown().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Equal(t, "posts/a.html", docs[0].Destination())
	require.Contains(t, readDoc(t, docs[0]), "<h1>Title</h1>")
}

func TestMarkdown_NonMarkdownPassesThrough(t *testing.T) {
	doc := docmodel.New("x.css", "x.css", nil, docmodel.NewStringContent("body{}"))

	docs, err := Markdown().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Same(t, doc, docs[0])
}

func TestSlug_NormalizesDestinations(t *testing.T) {
	doc := docmodel.New("src.md", "Posts/Héllo Wörld.MD", nil, docmodel.NewStringContent("x"))

	docs, err := Slug().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Equal(t, "posts/hello-world.md", docs[0].Destination())
}

func TestSlug_AlreadySluggedPassesThrough(t *testing.T) {
	doc := docmodel.New("src.md", "posts/hello.md", nil, docmodel.NewStringContent("x"))

	docs, err := Slug().Execute(context.Background(), nil, []*docmodel.Document{doc})
	require.NoError(t, err)
	require.Same(t, doc, docs[0])
}

func TestWriteFiles_MaterializesDocuments(t *testing.T) {
	ec, _, readOutput := newExecContext(t)
	docs := []*docmodel.Document{
		docmodel.Synthetic("site/index.html", nil, docmodel.NewStringContent("<html/>")),
		docmodel.Synthetic("marker.html", nil, nil), // no content, not written
	}

	out, err := WriteFiles().Execute(context.Background(), ec, docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "<html/>", readOutput("site/index.html"))

	_, err = ec.FS.Open("marker.html")
	require.Error(t, err)
}

func TestLinkCheck_AcceptsResolvableLinks(t *testing.T) {
	docs := []*docmodel.Document{
		docmodel.Synthetic("index.html", nil,
			docmodel.NewStringContent(`<a href="posts/a.html">a</a> <a href="https://example.com/x">ext</a> <a href="#top">anchor</a>`)),
		docmodel.Synthetic("posts/a.html", nil,
			docmodel.NewStringContent(`<a href="/index.html">home</a> <a href="../index.html?utm=1">rel</a>`)),
	}

	out, err := LinkCheck().Execute(context.Background(), nil, docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestLinkCheck_ReportsBrokenInternalLink(t *testing.T) {
	docs := []*docmodel.Document{
		docmodel.Synthetic("index.html", nil,
			docmodel.NewStringContent(`<a href="missing.html">gone</a>`)),
	}

	_, err := LinkCheck().Execute(context.Background(), nil, docs)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.Contains(t, err.Error(), "broken internal links")
}

func TestSynthetic_AppendsDocuments(t *testing.T) {
	seed := docmodel.Synthetic("existing.html", nil, docmodel.NewStringContent("x"))

	docs, err := Synthetic(SyntheticDoc{
		Destination: "feed.xml",
		Metadata:    map[string]any{"kind": "feed"},
		Content:     "<rss/>",
	}).Execute(context.Background(), nil, []*docmodel.Document{seed})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "feed.xml", docs[1].Destination())
	require.Equal(t, "<rss/>", readDoc(t, docs[1]))
	kind, _ := docs[1].GetString("kind")
	require.Equal(t, "feed", kind)
}
