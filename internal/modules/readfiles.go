// Package modules holds the built-in pipeline modules: file ingestion, front
// matter extraction, markdown rendering, destination slugging, output
// writing, link validation, and synthetic document injection.
package modules

import (
	"context"
	"io"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/incremental"
)

// ReadFiles globs the input root and appends one document per matched file.
// Content is lazily opened on first read and cached in memory afterwards.
//
// Re-reads are avoided across passes via the incremental cache: when a file's
// size and mtime signature is unchanged, the previous pass's document is
// reused, content cache included.
func ReadFiles(patterns ...string) engine.Module {
	return engine.ModuleFunc("read-files", func(ctx context.Context, ec *engine.ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
		names, err := ec.FS.Glob(patterns...)
		if err != nil {
			return nil, err
		}

		out := append([]*docmodel.Document{}, docs...)
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			info, err := ec.FS.Stat(name)
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat input").
					WithContext("path", name).
					Build()
			}
			signature := incremental.FileSignature(info)
			cacheKey := "readfiles:" + name

			if entry, ok := ec.Cache.Lookup(cacheKey, signature); ok {
				out = append(out, entry.Documents...)
				continue
			}

			doc := docmodel.New(name, name, nil, streamFrom(ec, name))
			ec.Cache.Put(cacheKey, incremental.Entry{
				Signature: signature,
				Documents: []*docmodel.Document{doc},
			})
			out = append(out, doc)
		}
		return out, nil
	})
}

func streamFrom(ec *engine.ExecContext, name string) docmodel.ContentRef {
	return docmodel.NewStreamContent(func(context.Context) (io.ReadCloser, error) {
		return ec.FS.Open(name)
	})
}
