package jrtfs

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type imageEntry struct {
	name     string // "/<module>/<parent>/<base>.<ext>"
	content  string
	compress bool
}

// imageBuilder lays out a little-endian lib/modules container.
type imageBuilder struct {
	strings []byte
	offsets map[string]uint32
}

func (b *imageBuilder) str(s string) uint64 {
	if off, ok := b.offsets[s]; ok {
		return uint64(off)
	}
	off := uint32(len(b.strings))
	b.offsets[s] = off
	b.strings = append(append(b.strings, s...), 0)
	return uint64(off)
}

func appendAttr(loc []byte, kind int, v uint64) []byte {
	if v == 0 {
		return loc
	}
	n := 1
	for v>>(8*n) != 0 {
		n++
	}
	loc = append(loc, byte(kind<<3|(n-1)))
	for i := n - 1; i >= 0; i-- {
		loc = append(loc, byte(v>>(8*i)))
	}
	return loc
}

func jimageBytes(t *testing.T, entries []imageEntry) []byte {
	t.Helper()
	b := &imageBuilder{strings: []byte{0}, offsets: map[string]uint32{"": 0}}
	le := binary.LittleEndian

	var locations, content []byte
	var locationOffsets []uint32
	for _, e := range entries {
		module, rest, _ := strings.Cut(strings.TrimPrefix(e.name, "/"), "/")
		parent, base := "", rest
		if i := strings.LastIndexByte(rest, '/'); i >= 0 {
			parent, base = rest[:i], rest[i+1:]
		}
		ext := ""
		if i := strings.LastIndexByte(base, '.'); i >= 0 {
			base, ext = base[:i], base[i+1:]
		}

		data := []byte(e.content)
		var compressed uint64
		if e.compress {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			_, _ = zw.Write(data)
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
			header := make([]byte, compressedHeader)
			le.PutUint32(header, compressedMagic)
			le.PutUint64(header[4:], uint64(z.Len()))
			le.PutUint64(header[12:], uint64(len(data)))
			le.PutUint32(header[20:], uint32(b.str("zip")))
			header[28] = 1
			packed := append(header, z.Bytes()...)
			compressed = uint64(len(packed))
			data = packed
		}

		locationOffsets = append(locationOffsets, uint32(len(locations)))
		locations = appendAttr(locations, attrModule, b.str(module))
		locations = appendAttr(locations, attrParent, b.str(parent))
		locations = appendAttr(locations, attrBase, b.str(base))
		locations = appendAttr(locations, attrExtension, b.str(ext))
		locations = appendAttr(locations, attrOffset, uint64(len(content)))
		locations = appendAttr(locations, attrCompressed, compressed)
		locations = appendAttr(locations, attrUncompressed, uint64(len(e.content)))
		locations = append(locations, attrEnd)
		content = append(content, data...)
	}

	var buf bytes.Buffer
	header := make([]byte, jimageHeaderSize)
	le.PutUint32(header, jimageMagic)
	le.PutUint32(header[4:], jimageMajorVersion<<16)
	le.PutUint32(header[12:], uint32(len(entries)))
	le.PutUint32(header[16:], uint32(len(entries)))
	le.PutUint32(header[20:], uint32(len(locations)))
	le.PutUint32(header[24:], uint32(len(b.strings)))
	buf.Write(header)
	buf.Write(make([]byte, 4*len(entries))) // redirect table
	for _, off := range locationOffsets {
		_ = binary.Write(&buf, le, off)
	}
	buf.Write(locations)
	buf.Write(b.strings)
	buf.Write(content)
	return buf.Bytes()
}

func jimageJDK(t *testing.T, entries []imageEntry) string {
	t.Helper()
	home := t.TempDir()
	writeFile(t, filepath.Join(home, "lib", "modules"), jimageBytes(t, entries))
	return home
}

func TestNewJimage(t *testing.T) {
	home := jimageJDK(t, []imageEntry{
		{name: "/java.base/java/lang/Object.class", content: "object"},
		{name: "/java.base/java/lang/String.class", content: strings.Repeat("string", 50), compress: true},
		{name: "/java.base/module-info.class", content: "info"},
		{name: "/java.sql/java/sql/Driver.class", content: "driver"},
		{name: "/packages/java.lang/java.base", content: "x"},
	})

	f, err := New(home)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.Modules(); !slices.Equal(got, []string{"java.base", "java.sql"}) {
		t.Errorf("Modules() = %v", got)
	}

	tests := []struct {
		path string
		want string
	}{
		{"modules/java.base/java/lang/Object.class", "object"},
		{"modules/java.base/java/lang/String.class", strings.Repeat("string", 50)},
		{"modules/java.base/module-info.class", "info"},
		{"modules/java.sql/java/sql/Driver.class", "driver"},
	}
	for _, tt := range tests {
		data, err := fs.ReadFile(f, tt.path)
		if err != nil {
			t.Errorf("ReadFile(%s) failed: %v", tt.path, err)
			continue
		}
		if string(data) != tt.want {
			t.Errorf("ReadFile(%s) = %q, want %q", tt.path, data, tt.want)
		}
	}

	if _, err := fs.ReadFile(f, "modules/java.base/java/lang/Missing.class"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing class error = %v, want ErrNotExist", err)
	}
}

func TestJimageWalk(t *testing.T) {
	home := jimageJDK(t, []imageEntry{
		{name: "/java.base/java/lang/Object.class", content: "object"},
		{name: "/java.base/java/lang/ref/Reference.class", content: "ref"},
		{name: "/java.base/java/io/File.class", content: "file"},
	})
	f, err := New(home)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	base, ok := f.Module("java.base")
	if !ok {
		t.Fatal("java.base is missing")
	}
	var files, dirs []string
	err = fs.WalkDir(base, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir failed: %v", err)
	}

	wantFiles := []string{"java/io/File.class", "java/lang/Object.class", "java/lang/ref/Reference.class"}
	if !slices.Equal(files, wantFiles) {
		t.Errorf("files = %v, want %v", files, wantFiles)
	}
	wantDirs := []string{".", "java", "java/io", "java/lang", "java/lang/ref"}
	if !slices.Equal(dirs, wantDirs) {
		t.Errorf("dirs = %v, want %v", dirs, wantDirs)
	}

	info, err := fs.Stat(base, "java/lang/Object.class")
	if err != nil || info.Size() != int64(len("object")) || info.IsDir() {
		t.Errorf("Stat = %v, %v", info, err)
	}
}

func TestNewJimagePrefersJmods(t *testing.T) {
	home := jimageJDK(t, []imageEntry{{name: "/java.base/java/lang/Object.class", content: "from image"}})
	writeFile(t, filepath.Join(home, "jmods", "java.base.jmod"), jmodBytes(t, map[string]string{
		"classes/java/lang/Object.class": "from jmod",
	}))

	f, err := New(home)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = f.Close() }()
	data, err := fs.ReadFile(f, "modules/java.base/java/lang/Object.class")
	if err != nil || string(data) != "from jmod" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}

func TestNewRejectsBadJimage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"wrong magic", bytes.Repeat([]byte{0x11}, 64)},
		{"truncated index", jimageBytes(t, []imageEntry{{name: "/java.base/a/A.class", content: "a"}})[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			writeFile(t, filepath.Join(home, "lib", "modules"), tt.data)
			if _, err := New(home); !errors.Is(err, ErrUnsupportedImage) {
				t.Errorf("New = %v, want ErrUnsupportedImage", err)
			}
		})
	}
}

func TestJimageUnknownCompressor(t *testing.T) {
	img := &jimage{order: binary.LittleEndian, strings: []byte("\x00compact-cp\x00")}
	data := make([]byte, compressedHeader+4)
	binary.LittleEndian.PutUint32(data, compressedMagic)
	binary.LittleEndian.PutUint64(data[4:], 4)
	binary.LittleEndian.PutUint32(data[20:], 1)

	if _, err := img.decompress(data); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("decompress = %v, want ErrUnsupportedImage", err)
	}
}
