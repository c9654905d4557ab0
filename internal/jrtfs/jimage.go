package jrtfs

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	jimageMagic        = 0xCAFEDADA
	jimageHeaderSize   = 7 * 4
	compressedMagic    = 0xCAFEFAFA
	compressedHeader   = 4 + 8 + 8 + 4 + 4 + 1
	jimageMajorVersion = 1
)

// Location attribute kinds.
const (
	attrEnd = iota
	attrModule
	attrParent
	attrBase
	attrExtension
	attrOffset
	attrCompressed
	attrUncompressed
	attrCount
)

// jimage is an open lib/modules container.
type jimage struct {
	file      *os.File
	order     binary.ByteOrder
	strings   []byte
	indexSize int64
}

type resource struct {
	offset       int64
	compressed   int64
	uncompressed int64
}

// fromJimage builds a filesystem over the lib/modules container of home.
func fromJimage(home, file string) (fsys *FileSystem, err error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, fh.Close())
		}
	}()

	img, modules, err := readJimage(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	f := &FileSystem{home: home, modules: make(map[string]fs.FS), release: []func() error{fh.Close}}
	for name, m := range modules {
		m.img = img
		f.modules[name] = m
		f.names = append(f.names, name)
	}
	slices.Sort(f.names)
	return f, nil
}

func readJimage(fh *os.File) (*jimage, map[string]*imageModule, error) {
	header := make([]byte, jimageHeaderSize)
	if _, err := fh.ReadAt(header, 0); err != nil {
		return nil, nil, fmt.Errorf("%w: truncated jimage header", ErrUnsupportedImage)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(header) == jimageMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(header) == jimageMagic:
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("%w: not a jimage file", ErrUnsupportedImage)
	}
	if major := order.Uint32(header[4:]) >> 16; major != jimageMajorVersion {
		return nil, nil, fmt.Errorf("%w: jimage version %d", ErrUnsupportedImage, major)
	}

	tableLength := int64(order.Uint32(header[16:]))
	locationsSize := int64(order.Uint32(header[20:]))
	stringsSize := int64(order.Uint32(header[24:]))
	offsetsStart := jimageHeaderSize + 4*tableLength
	locationsStart := offsetsStart + 4*tableLength
	stringsStart := locationsStart + locationsSize
	indexSize := stringsStart + stringsSize

	index := make([]byte, indexSize)
	if _, err := fh.ReadAt(index, 0); err != nil {
		return nil, nil, fmt.Errorf("%w: truncated jimage index", ErrUnsupportedImage)
	}
	img := &jimage{file: fh, order: order, strings: index[stringsStart:], indexSize: indexSize}
	offsets := index[offsetsStart:locationsStart]
	locations := index[locationsStart:stringsStart]

	modules := make(map[string]*imageModule)
	for i := int64(0); i < tableLength; i++ {
		at := int64(order.Uint32(offsets[4*i:]))
		if at >= int64(len(locations)) {
			return nil, nil, fmt.Errorf("%w: location %d out of range", ErrUnsupportedImage, i)
		}
		attrs, err := decodeLocation(locations[at:])
		if err != nil {
			return nil, nil, err
		}

		module := img.str(attrs[attrModule])
		// "packages" and "modules" hold the synthetic jrt directories.
		if module == "" || module == "packages" || module == "modules" {
			continue
		}
		name := img.str(attrs[attrBase])
		if ext := img.str(attrs[attrExtension]); ext != "" {
			name += "." + ext
		}
		if parent := img.str(attrs[attrParent]); parent != "" {
			name = parent + "/" + name
		}

		m, ok := modules[module]
		if !ok {
			m = newImageModule()
			modules[module] = m
		}
		m.add(name, resource{
			offset:       int64(attrs[attrOffset]),
			compressed:   int64(attrs[attrCompressed]),
			uncompressed: int64(attrs[attrUncompressed]),
		})
	}
	for _, m := range modules {
		m.sortDirs()
	}
	return img, modules, nil
}

// decodeLocation reads attribute bytes: the high five bits of a tag byte
// are the kind, the low three the value length minus one, followed by the
// big-endian value.
func decodeLocation(data []byte) ([attrCount]uint64, error) {
	var attrs [attrCount]uint64
	for p := 0; p < len(data); {
		kind := int(data[p] >> 3)
		if kind == attrEnd {
			return attrs, nil
		}
		if kind >= attrCount {
			return attrs, fmt.Errorf("%w: unknown location attribute %d", ErrUnsupportedImage, kind)
		}
		n := int(data[p]&0x7) + 1
		if p+1+n > len(data) {
			return attrs, fmt.Errorf("%w: truncated location attribute", ErrUnsupportedImage)
		}
		var v uint64
		for _, b := range data[p+1 : p+1+n] {
			v = v<<8 | uint64(b)
		}
		attrs[kind] = v
		p += 1 + n
	}
	return attrs, fmt.Errorf("%w: unterminated location", ErrUnsupportedImage)
}

func (img *jimage) str(offset uint64) string {
	if offset >= uint64(len(img.strings)) {
		return ""
	}
	s := img.strings[offset:]
	if end := bytes.IndexByte(s, 0); end >= 0 {
		s = s[:end]
	}
	return string(s)
}

func (img *jimage) read(r resource) ([]byte, error) {
	size := r.uncompressed
	if r.compressed != 0 {
		size = r.compressed
	}
	data := make([]byte, size)
	if _, err := img.file.ReadAt(data, img.indexSize+r.offset); err != nil {
		return nil, err
	}
	if r.compressed == 0 {
		return data, nil
	}
	return img.decompress(data)
}

// decompress strips compression headers until the payload is plain.
func (img *jimage) decompress(data []byte) ([]byte, error) {
	for len(data) >= compressedHeader && img.order.Uint32(data) == compressedMagic {
		size := img.order.Uint64(data[4:])
		uncompressed := img.order.Uint64(data[12:])
		decompressor := img.str(uint64(img.order.Uint32(data[20:])))
		if uint64(len(data)-compressedHeader) < size {
			return nil, fmt.Errorf("%w: truncated compressed resource", ErrUnsupportedImage)
		}
		payload := data[compressedHeader : compressedHeader+int(size)]

		switch decompressor {
		case "zip":
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			out, err := io.ReadAll(io.LimitReader(zr, int64(uncompressed)))
			if err != nil {
				return nil, multierr.Append(err, zr.Close())
			}
			if err := zr.Close(); err != nil {
				return nil, err
			}
			data = out
		default:
			return nil, fmt.Errorf("%w: %s compressed resources", ErrUnsupportedImage, decompressor)
		}
	}
	return data, nil
}

// imageModule is the tree of one module inside a jimage.
type imageModule struct {
	img   *jimage
	files map[string]resource
	dirs  map[string][]fs.DirEntry
}

func newImageModule() *imageModule {
	return &imageModule{
		files: make(map[string]resource),
		dirs:  map[string][]fs.DirEntry{".": nil},
	}
}

func (m *imageModule) add(name string, r resource) {
	if _, ok := m.files[name]; ok {
		return
	}
	m.files[name] = r
	child := fs.FileInfoToDirEntry(imageInfo{name: path.Base(name), size: r.uncompressed})
	for dir := path.Dir(name); ; dir = path.Dir(dir) {
		_, seen := m.dirs[dir]
		m.dirs[dir] = append(m.dirs[dir], child)
		if seen || dir == "." {
			return
		}
		child = fs.FileInfoToDirEntry(imageInfo{name: path.Base(dir), dir: true})
	}
}

func (m *imageModule) sortDirs() {
	for _, entries := range m.dirs {
		slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })
	}
}

func (m *imageModule) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if r, ok := m.files[name]; ok {
		return imageInfo{name: path.Base(name), size: r.uncompressed}, nil
	}
	if _, ok := m.dirs[name]; ok {
		return imageInfo{name: path.Base(name), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *imageModule) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, ok := m.dirs[name]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return slices.Clone(entries), nil
}

func (m *imageModule) ReadFile(name string) ([]byte, error) {
	r, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	data, err := m.img.read(r)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (m *imageModule) Open(name string) (fs.File, error) {
	info, err := m.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &imageDir{info: info, entries: m.dirs[name]}, nil
	}
	data, err := m.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &imageFile{info: info, Reader: bytes.NewReader(data)}, nil
}

type imageInfo struct {
	name string
	size int64
	dir  bool
}

func (i imageInfo) Name() string       { return i.name }
func (i imageInfo) Size() int64        { return i.size }
func (i imageInfo) ModTime() time.Time { return time.Time{} }
func (i imageInfo) IsDir() bool        { return i.dir }
func (i imageInfo) Sys() any           { return nil }

func (i imageInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

type imageFile struct {
	info fs.FileInfo
	*bytes.Reader
}

func (f *imageFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *imageFile) Close() error               { return nil }

type imageDir struct {
	info    fs.FileInfo
	entries []fs.DirEntry
	read    int
}

func (d *imageDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *imageDir) Close() error               { return nil }

func (d *imageDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.Name(), Err: fs.ErrInvalid}
}

func (d *imageDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.read:]
	if n <= 0 {
		d.read = len(d.entries)
		return slices.Clone(rest), nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	rest = rest[:min(n, len(rest))]
	d.read += len(rest)
	return slices.Clone(rest), nil
}
