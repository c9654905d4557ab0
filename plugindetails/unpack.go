package plugindetails

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// isDistribution reports whether a zip holds a plugin laid out as
// [<name>/]lib/*.jar rather than classes at its root.
func isDistribution(zr *zip.Reader) bool {
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		if strings.HasSuffix(name, ".jar") && (strings.HasPrefix(name, "lib/") || strings.Contains(name, "/lib/")) {
			return true
		}
	}
	return false
}

// unpackDistribution extracts a plugin distribution zip into dest and
// returns the plugin root. Archives that are not distributions are left
// alone and reported with unpacked false.
func unpackDistribution(zipPath, dest string) (root string, unpacked bool, err error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", false, err
	}
	defer func() { err = multierr.Append(err, zr.Close()) }()

	if !isDistribution(&zr.Reader) {
		return "", false, nil
	}

	tmp := dest + ".unpack-" + uuid.NewString()
	if err := extractAll(&zr.Reader, tmp); err != nil {
		return "", false, multierr.Append(err, os.RemoveAll(tmp))
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", false, multierr.Append(err, os.RemoveAll(tmp))
	}

	root, _ = unpackedRoot(dest)
	return root, true, nil
}

func extractAll(zr *zip.Reader, dir string) error {
	for _, f := range zr.File {
		if !filepath.IsLocal(f.Name) {
			return fmt.Errorf("entry %q escapes the archive root", f.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	_, err = io.Copy(out, in)
	return err
}

// unpackedRoot returns the plugin root inside an extracted distribution:
// its only top-level directory, or dir itself.
func unpackedRoot(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), true
	}
	return dir, true
}
