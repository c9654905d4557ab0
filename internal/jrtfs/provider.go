package jrtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// jmodMagic precedes the zip payload of a .jmod file.
var jmodMagic = []byte{'J', 'M', 0x01, 0x00}

// Strategy selects how Obtain gets a filesystem.
type Strategy int

const (
	// Auto picks Reuse for images older than Java 17 and Create otherwise.
	Auto Strategy = iota
	// Reuse shares the process-wide registered filesystem, creating and
	// registering it on first use.
	Reuse
	// Create builds a filesystem owned by the caller.
	Create
)

func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Reuse:
		return "reuse"
	case Create:
		return "create"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Handle is a filesystem obtained for one user.
type Handle struct {
	*FileSystem
	owned bool
}

// Owned reports whether Release closes the filesystem.
func (h *Handle) Owned() bool {
	return h.owned
}

// Release closes the filesystem if the handle owns it. Shared filesystems
// stay registered.
func (h *Handle) Release() error {
	if !h.owned {
		return nil
	}
	return h.FileSystem.Close()
}

// Obtain returns the module filesystem of the JDK at home.
func Obtain(home string, strategy Strategy) (*Handle, error) {
	home = ResolveHome(home)
	if strategy == Auto {
		strategy = Create
		if v := JavaVersion(home); v < 17 {
			strategy = Reuse
		}
	}

	if strategy == Create {
		f, err := New(home)
		if err != nil {
			return nil, err
		}
		return &Handle{FileSystem: f, owned: true}, nil
	}
	return obtainShared(home)
}

func obtainShared(home string) (*Handle, error) {
	if f, err := Get(home); err == nil {
		return &Handle{FileSystem: f}, nil
	}

	created, err := New(home)
	if err != nil {
		if f, getErr := Get(home); getErr == nil {
			return &Handle{FileSystem: f}, nil
		}
		return nil, err
	}

	if err := Register(created); err != nil {
		if !errors.Is(err, ErrAlreadyRegistered) {
			return nil, multierr.Append(err, created.Close())
		}
		// Lost the race to another registration: drop ours and share theirs.
		if closeErr := created.Close(); closeErr != nil {
			zap.L().Warn("closing duplicate jrt filesystem", zap.String("home", home), zap.Error(closeErr))
		}
		f, err := Get(home)
		if err != nil {
			return nil, err
		}
		return &Handle{FileSystem: f}, nil
	}
	return &Handle{FileSystem: created}, nil
}

// New builds a private filesystem from the image at home. Images are read
// from jmods/*.jmod, an exploded modules/ directory or the lib/modules
// container, in that order.
func New(home string) (*FileSystem, error) {
	home = ResolveHome(home)

	jmods, err := filepath.Glob(filepath.Join(home, "jmods", "*.jmod"))
	if err != nil {
		return nil, err
	}
	if len(jmods) > 0 {
		return fromJmods(home, jmods)
	}

	exploded := filepath.Join(home, "modules")
	if info, err := os.Stat(exploded); err == nil && info.IsDir() {
		return fromExploded(home, exploded)
	}

	container := filepath.Join(home, "lib", "modules")
	if info, err := os.Stat(container); err == nil && !info.IsDir() {
		return fromJimage(home, container)
	}
	return nil, fmt.Errorf("%w: no runtime modules found in %s", ErrUnsupportedImage, home)
}

func fromExploded(home, dir string) (*FileSystem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	f := &FileSystem{home: home, modules: make(map[string]fs.FS)}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		f.modules[e.Name()] = os.DirFS(filepath.Join(dir, e.Name()))
		f.names = append(f.names, e.Name())
	}
	slices.Sort(f.names)
	return f, nil
}

func fromJmods(home string, files []string) (fsys *FileSystem, err error) {
	f := &FileSystem{home: home, modules: make(map[string]fs.FS)}
	defer func() {
		if err != nil {
			err = multierr.Append(err, f.Close())
		}
	}()

	for _, file := range files {
		module, closer, err := openJmod(file)
		if err != nil {
			return nil, err
		}
		f.release = append(f.release, closer.Close)
		name := moduleName(file)
		f.modules[name] = module
		f.names = append(f.names, name)
	}
	slices.Sort(f.names)
	return f, nil
}

func openJmod(file string) (fs.FS, io.Closer, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	info, err := fh.Stat()
	if err != nil {
		return nil, nil, multierr.Append(err, fh.Close())
	}

	header := make([]byte, len(jmodMagic))
	if _, err := io.ReadFull(fh, header); err != nil || !bytes.Equal(header, jmodMagic) {
		return nil, nil, multierr.Append(fmt.Errorf("%w: %s is not a jmod file", ErrUnsupportedImage, file), fh.Close())
	}

	size := info.Size() - int64(len(jmodMagic))
	zr, err := zip.NewReader(io.NewSectionReader(fh, int64(len(jmodMagic)), size), size)
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("reading %s: %w", file, err), fh.Close())
	}
	classes, err := fs.Sub(zr, "classes")
	if err != nil {
		return nil, nil, multierr.Append(err, fh.Close())
	}
	return classes, fh, nil
}
