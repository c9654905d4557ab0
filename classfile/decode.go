package classfile

import (
	"encoding/binary"
	"fmt"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// minHeader is magic, minor, major and constant pool count.
const minHeader = 10

type constant struct {
	tag  uint8
	utf8 string
	ref  uint16
}

// Decode decodes data as a class file. name is the binary name the caller
// expects and is only used to label errors, which are always of type
// *InvalidClassFileError.
func Decode(name string, data []byte, mode ReadMode) (*ClassFile, error) {
	cf, err := decode(data, mode)
	if err != nil {
		return nil, &InvalidClassFileError{ClassName: name, Err: err}
	}
	return cf, nil
}

func decode(data []byte, mode ReadMode) (*ClassFile, error) {
	if len(data) < minHeader {
		return nil, fmt.Errorf("%w: class file is %d bytes, header needs %d", ErrTruncated, len(data), minHeader)
	}

	r := &reader{data: data}
	if magic := r.u4(); magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}

	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}

	cf.Access = r.u2()
	if cf.Name, err = pool.className(r.u2()); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if super := r.u2(); super != 0 {
		if cf.SuperName, err = pool.className(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	n := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	cf.Interfaces = make([]string, 0, n)
	for i := 0; i < n; i++ {
		iface, err := pool.className(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, iface)
	}

	if cf.Fields, err = readMembers(r, pool, mode); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = readMembers(r, pool, mode); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	err = readAttributes(r, pool, func(attr string, body []byte) error {
		switch attr {
		case "SourceFile":
			s, err := pool.utf8At(body, 0)
			cf.SourceFile = s
			return err
		case "Signature":
			s, err := pool.utf8At(body, 0)
			cf.Signature = s
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}

	if r.err != nil {
		return nil, r.err
	}
	if rest := len(r.data) - r.pos; rest != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after class end", ErrMalformed, rest)
	}
	return cf, nil
}

type constantPool []constant

func readPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: constant pool count is zero", ErrMalformed)
	}

	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			c.utf8 = string(r.bytes(int(r.u2())))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			pool[i] = c
			i++
			if i >= count {
				return nil, fmt.Errorf("%w: 8-byte constant at index %d overflows the pool", ErrMalformed, i-1)
			}
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.ref = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.ref = r.u2()
			r.skip(2)
		case tagMethodHandle:
			r.skip(1)
			c.ref = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: invalid constant pool tag %d at index %d", ErrMalformed, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = c
	}
	return pool, nil
}

func (p constantPool) entry(index uint16, tag uint8) (constant, error) {
	if index == 0 || int(index) >= len(p) {
		return constant{}, fmt.Errorf("%w: constant pool index %d out of range [1, %d)", ErrMalformed, index, len(p))
	}
	c := p[index]
	if c.tag != tag {
		return constant{}, fmt.Errorf("%w: constant pool index %d has tag %d, want %d", ErrMalformed, index, c.tag, tag)
	}
	return c, nil
}

func (p constantPool) utf8(index uint16) (string, error) {
	c, err := p.entry(index, tagUtf8)
	return c.utf8, err
}

func (p constantPool) className(index uint16) (string, error) {
	c, err := p.entry(index, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.ref)
}

// utf8At reads a u2 constant pool index from body at offset and resolves it.
func (p constantPool) utf8At(body []byte, offset int) (string, error) {
	if len(body) < offset+2 {
		return "", fmt.Errorf("%w: attribute body is %d bytes", ErrTruncated, len(body))
	}
	return p.utf8(binary.BigEndian.Uint16(body[offset:]))
}

func readMembers(r *reader, pool constantPool, mode ReadMode) ([]Member, error) {
	n := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	members := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		var m Member
		var err error
		m.Access = r.u2()
		if m.Name, err = pool.utf8(r.u2()); err != nil {
			return nil, fmt.Errorf("member %d name: %w", i, err)
		}
		if m.Descriptor, err = pool.utf8(r.u2()); err != nil {
			return nil, fmt.Errorf("member %s descriptor: %w", m.Name, err)
		}
		err = readAttributes(r, pool, func(attr string, body []byte) error {
			switch attr {
			case "Signature":
				s, err := pool.utf8At(body, 0)
				m.Signature = s
				return err
			case "Code":
				if mode == Full {
					m.Code = append([]byte(nil), body...)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("member %s attributes: %w", m.Name, err)
		}
		members = append(members, m)
	}
	return members, nil
}

func readAttributes(r *reader, pool constantPool, fn func(name string, body []byte) error) error {
	n := int(r.u2())
	for i := 0; i < n; i++ {
		nameIndex := r.u2()
		length := r.u4()
		if r.err != nil {
			return r.err
		}
		if uint64(length) > uint64(len(r.data)-r.pos) {
			return fmt.Errorf("%w: attribute %d declares %d bytes, %d remain", ErrTruncated, i, length, len(r.data)-r.pos)
		}
		body := r.bytes(int(length))
		name, err := pool.utf8(nameIndex)
		if err != nil {
			return fmt.Errorf("attribute %d name: %w", i, err)
		}
		if err := fn(name, body); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	return r.err
}

// reader is a big-endian cursor with a sticky error.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.data)-r.pos < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}
