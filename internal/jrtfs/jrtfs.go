// Package jrtfs provides the module filesystem of a JDK runtime image, laid
// out the way the jrt:/ scheme exposes it: /modules/<module>/<package>/<Class>.class.
//
// Filesystems are either private to their user or registered process-wide
// under their URI and shared. Obtain hides which of the two a caller gets.
package jrtfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"gopkg.in/ini.v1"
)

// Scheme is the URI scheme module filesystems are registered under.
const Scheme = "jrt"

var (
	ErrAlreadyRegistered = errors.New("jrt filesystem already registered")
	ErrNotRegistered     = errors.New("jrt filesystem not registered")
	ErrUnsupportedImage  = errors.New("unsupported runtime image")
)

// FileSystem is the module tree of one JDK.
type FileSystem struct {
	home    string
	modules map[string]fs.FS
	names   []string
	release []func() error

	closeOnce sync.Once
	closeErr  error
}

// Home returns the JDK home the filesystem was built from.
func (f *FileSystem) Home() string {
	return f.home
}

// URI returns the identifier the filesystem is registered under.
func (f *FileSystem) URI() string {
	return URI(f.home)
}

// Modules returns module names in sorted order.
func (f *FileSystem) Modules() []string {
	return slices.Clone(f.names)
}

// Module returns the tree of one module, rooted at its package directories.
func (f *FileSystem) Module(name string) (fs.FS, bool) {
	m, ok := f.modules[name]
	return m, ok
}

// Open opens "modules/<module>/<path>".
func (f *FileSystem) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	rest, ok := strings.CutPrefix(name, "modules/")
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	module, inner, _ := strings.Cut(rest, "/")
	m, ok := f.modules[module]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if inner == "" {
		inner = "."
	}
	return m.Open(inner)
}

// Close releases every archive the filesystem holds open.
func (f *FileSystem) Close() error {
	f.closeOnce.Do(func() {
		for _, release := range f.release {
			f.closeErr = multierr.Append(f.closeErr, release())
		}
	})
	return f.closeErr
}

// URI builds the registration key for a JDK home.
func URI(home string) string {
	return Scheme + ":" + filepath.ToSlash(filepath.Clean(home))
}

var (
	mu         sync.Mutex
	registered = make(map[string]*FileSystem)
)

// Get returns the filesystem registered for home.
func Get(home string) (*FileSystem, error) {
	mu.Lock()
	defer mu.Unlock()
	if f, ok := registered[URI(ResolveHome(home))]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRegistered, URI(ResolveHome(home)))
}

// Register makes f available to Get.
func Register(f *FileSystem) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registered[f.URI()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, f.URI())
	}
	registered[f.URI()] = f
	return nil
}

// Unregister removes and closes the filesystem registered for home.
func Unregister(home string) error {
	mu.Lock()
	uri := URI(ResolveHome(home))
	f, ok := registered[uri]
	delete(registered, uri)
	mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, uri)
	}
	return f.Close()
}

// ResolveHome returns the directory holding the image, following the
// Contents/Home indirection of macOS bundles.
func ResolveHome(home string) string {
	bundled := filepath.Join(home, "Contents", "Home")
	if info, err := os.Stat(bundled); err == nil && info.IsDir() {
		return bundled
	}
	return home
}

// ReadRelease parses the image's release file, a list of KEY="value"
// properties such as JAVA_VERSION and IMPLEMENTOR.
func ReadRelease(home string) (map[string]string, error) {
	cfg, err := ini.Load(filepath.Join(ResolveHome(home), "release"))
	if err != nil {
		return nil, err
	}
	props := make(map[string]string)
	for _, key := range cfg.Section(ini.DefaultSection).Keys() {
		props[key.Name()] = strings.Trim(key.String(), `"`)
	}
	return props, nil
}

// JavaVersion reads the feature release number from the image's release
// file ("1.8.0_292" is 8, "17.0.2" is 17). It returns 0 when unknown.
func JavaVersion(home string) int {
	props, err := ReadRelease(home)
	if err != nil {
		return 0
	}
	value, ok := props["JAVA_VERSION"]
	if !ok {
		return 0
	}
	value = strings.TrimPrefix(value, "1.")
	major, _, _ := strings.Cut(value, ".")
	major, _, _ = strings.Cut(major, "_")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}

func moduleName(file string) string {
	return strings.TrimSuffix(path.Base(filepath.ToSlash(file)), ".jmod")
}
