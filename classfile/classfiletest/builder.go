// Package classfiletest assembles class file bytes for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"

	"github.com/git-pkgs/pluginverifier/classfile"
)

// Class describes a class to assemble.
type Class struct {
	Name       string
	Super      string // defaults to java/lang/Object unless Name is java/lang/Object
	Interfaces []string
	Access     uint16
	Fields     []Member
	Methods    []Member
	SourceFile string
}

// Member describes a field or method. Methods with a non-nil Code get a
// Code attribute holding those bytes verbatim.
type Member struct {
	Access     uint16
	Name       string
	Descriptor string
	Code       []byte
}

type pool struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func (p *pool) addUtf8(s string) uint16 {
	if i, ok := p.utf8[s]; ok {
		return i
	}
	p.buf.WriteByte(1)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	p.count++
	p.utf8[s] = p.count
	return p.count
}

func (p *pool) addClass(name string) uint16 {
	if i, ok := p.class[name]; ok {
		return i
	}
	nameIndex := p.addUtf8(name)
	p.buf.WriteByte(7)
	_ = binary.Write(&p.buf, binary.BigEndian, nameIndex)
	p.count++
	p.class[name] = p.count
	return p.count
}

// Bytes assembles c into a class file targeting Java 8.
func Bytes(c Class) []byte {
	p := &pool{utf8: map[string]uint16{}, class: map[string]uint16{}}

	super := c.Super
	if super == "" && c.Name != "java/lang/Object" {
		super = "java/lang/Object"
	}
	access := c.Access
	if access == 0 {
		access = classfile.AccPublic | classfile.AccSuper
	}

	var body bytes.Buffer
	w := func(v any) { _ = binary.Write(&body, binary.BigEndian, v) }

	w(access)
	w(p.addClass(c.Name))
	if super != "" {
		w(p.addClass(super))
	} else {
		w(uint16(0))
	}
	w(uint16(len(c.Interfaces)))
	for _, iface := range c.Interfaces {
		w(p.addClass(iface))
	}

	for _, members := range [][]Member{c.Fields, c.Methods} {
		w(uint16(len(members)))
		for _, m := range members {
			w(m.Access)
			w(p.addUtf8(m.Name))
			w(p.addUtf8(m.Descriptor))
			if m.Code == nil {
				w(uint16(0))
				continue
			}
			w(uint16(1))
			w(p.addUtf8("Code"))
			w(uint32(len(m.Code)))
			body.Write(m.Code)
		}
	}

	if c.SourceFile != "" {
		w(uint16(1))
		w(p.addUtf8("SourceFile"))
		w(uint32(2))
		w(p.addUtf8(c.SourceFile))
	} else {
		w(uint16(0))
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint32(classfile.Magic))
	_ = binary.Write(&out, binary.BigEndian, uint16(0))
	_ = binary.Write(&out, binary.BigEndian, uint16(52))
	_ = binary.Write(&out, binary.BigEndian, p.count+1)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// Simple assembles a public class with the given superclass and interfaces.
func Simple(name, super string, interfaces ...string) []byte {
	return Bytes(Class{Name: name, Super: super, Interfaces: interfaces})
}
