package resolver

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// JarResolver resolves classes stored in one jar or zip archive.
// Nested archives are not opened.
//
// All lookups share one zip reader. Entry reads go through io.ReaderAt
// section readers, so concurrent lookups need no locking.
type JarResolver struct {
	*indexed[*zip.File]
	path string
}

// NewJar opens and indexes the archive at path. The archive stays open
// until Close.
func NewJar(path string, opts ...Option) (*JarResolver, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	o := buildOptions(opts)
	if o.origin == nil {
		o.origin = JarOrZip{Name: filepath.Base(path)}
	}
	r := newJar(&zr.Reader, path, o)
	r.release = zr.Close
	return r, nil
}

// NewJarReader indexes an already opened archive. Closing the resolver does
// not close the underlying reader.
func NewJarReader(zr *zip.Reader, name string, opts ...Option) *JarResolver {
	o := buildOptions(opts)
	if o.origin == nil {
		o.origin = JarOrZip{Name: name}
	}
	return newJar(zr, name, o)
}

func newJar(zr *zip.Reader, path string, o options) *JarResolver {
	r := &JarResolver{
		indexed: newIndexed(o.mode, o.origin, "archive "+path, readZipEntry),
		path:    path,
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isVersionedEntry(f.Name) {
			continue
		}
		if name, ok := ClassName(f.Name); ok {
			r.add(name, f)
		}
	}
	return r
}

// Path returns the archive location.
func (r *JarResolver) Path() string {
	return r.path
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// isVersionedEntry reports multi-release overlays, which do not map to
// binary names directly.
func isVersionedEntry(name string) bool {
	return strings.HasPrefix(name, "META-INF/versions/")
}
