// Package vfs is the filesystem collaborator consumed by the pipeline
// engine: path resolution against configured input/output roots, glob
// expansion with exclusion patterns, stream opening for reads, and
// destination writing for outputs.
//
// The implementation is backed by go-billy filesystems so production code
// runs against the OS filesystem while tests run against memfs.
package vfs

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// FS is the narrow filesystem capability the engine and its modules consume.
type FS interface {
	// Open opens an input file for reading.
	Open(name string) (io.ReadCloser, error)

	// Stat returns file info for an input path.
	Stat(name string) (os.FileInfo, error)

	// Glob expands inclusion/exclusion patterns against the input root.
	// Patterns prefixed with '!' exclude previously matched paths. The
	// result is sorted and duplicate-free.
	Glob(patterns ...string) ([]string, error)

	// Write writes an output artifact, creating parent directories.
	Write(name string, data []byte) error
}

type billyFS struct {
	input  billy.Filesystem
	output billy.Filesystem
}

// New creates an FS over separate input and output roots.
func New(input, output billy.Filesystem) FS {
	return &billyFS{input: input, output: output}
}

func (f *billyFS) Open(name string) (io.ReadCloser, error) {
	file, err := f.input.Open(name)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open input").
			WithContext("path", name).
			Build()
	}
	return file, nil
}

func (f *billyFS) Stat(name string) (os.FileInfo, error) {
	return f.input.Stat(name)
}

func (f *billyFS) Glob(patterns ...string) ([]string, error) {
	matched := make(map[string]struct{})

	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			exclude := strings.TrimPrefix(pattern, "!")
			for name := range matched {
				if matchPath(exclude, name) {
					delete(matched, name)
				}
			}
			continue
		}

		err := util.Walk(f.input, "/", func(p string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			rel := strings.TrimPrefix(p, "/")
			if matchPath(pattern, rel) {
				matched[rel] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "glob walk").
				WithContext("pattern", pattern).
				Build()
		}
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *billyFS) Write(name string, data []byte) error {
	if err := util.WriteFile(f.output, name, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output").
			WithContext("path", name).
			Build()
	}
	return nil
}

// matchPath matches slash-separated glob patterns against a relative path.
// A "**" segment matches any number of path segments (including none);
// other segments use path.Match semantics.
func matchPath(pattern, name string) bool {
	return matchSegments(strings.Split(path.Clean(pattern), "/"), strings.Split(path.Clean(name), "/"))
}

func matchSegments(pattern, name []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	if pattern[0] == "**" {
		for skip := 0; skip <= len(name); skip++ {
			if matchSegments(pattern[1:], name[skip:]) {
				return true
			}
		}
		return false
	}
	if len(name) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], name[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], name[1:])
}
