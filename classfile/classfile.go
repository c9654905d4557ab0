// Package classfile decodes JVM class files into the structural model the
// resolvers and the hierarchy walker work with.
//
// Decoding is strict: truncated data, bad constant pool references and
// trailing garbage are reported as errors, while attributes the decoder does
// not know about are skipped.
package classfile

import (
	"errors"
	"fmt"
)

// Engine names the decoder in diagnostics.
const Engine = "classfile decoder"

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

var (
	ErrTruncated = errors.New("unexpected end of class data")
	ErrBadMagic  = errors.New("bad magic number")
	ErrMalformed = errors.New("malformed class structure")
)

// ReadMode selects how much of a class is decoded.
type ReadMode int

const (
	// Signatures decodes names, supertypes and member signatures only.
	Signatures ReadMode = iota
	// Full additionally keeps method bodies.
	Full
)

func (m ReadMode) String() string {
	switch m {
	case Signatures:
		return "signatures"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("ReadMode(%d)", int(m))
	}
}

// ParseReadMode parses "signatures" or "full".
func ParseReadMode(s string) (ReadMode, error) {
	switch s {
	case "signatures", "":
		return Signatures, nil
	case "full":
		return Full, nil
	}
	return 0, fmt.Errorf("unknown read mode %q", s)
}

// Access flags.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// ClassFile is a decoded class.
type ClassFile struct {
	Name         string // binary name, e.g. "a/b/C"
	SuperName    string // empty for java/lang/Object and module-info
	Interfaces   []string
	Access       uint16
	MajorVersion uint16
	MinorVersion uint16
	Signature    string
	SourceFile   string
	Fields       []Member
	Methods      []Member
}

// Member is a field or a method.
type Member struct {
	Access     uint16
	Name       string
	Descriptor string
	Signature  string
	Code       []byte // method body, only kept in Full mode
}

func (c *ClassFile) IsInterface() bool { return c.Access&AccInterface != 0 }
func (c *ClassFile) IsAbstract() bool  { return c.Access&AccAbstract != 0 }
func (c *ClassFile) IsFinal() bool     { return c.Access&AccFinal != 0 }
func (c *ClassFile) IsPublic() bool    { return c.Access&AccPublic != 0 }

// Parents returns the superclass (if any) followed by the interfaces.
func (c *ClassFile) Parents(withInterfaces bool) []string {
	var parents []string
	if c.SuperName != "" {
		parents = append(parents, c.SuperName)
	}
	if withInterfaces {
		parents = append(parents, c.Interfaces...)
	}
	return parents
}

// Method returns the method with the given name and descriptor.
func (c *ClassFile) Method(name, descriptor string) (Member, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return Member{}, false
}

// Package returns the binary package name of a binary class name,
// or "" for the default package.
func Package(binaryName string) string {
	for i := len(binaryName) - 1; i >= 0; i-- {
		if binaryName[i] == '/' {
			return binaryName[:i]
		}
	}
	return ""
}

// InvalidClassFileError is returned when bytes that should hold a class
// cannot be decoded.
type InvalidClassFileError struct {
	ClassName string
	Err       error
}

func (e *InvalidClassFileError) Error() string {
	return fmt.Sprintf("Unable to read class '%s' using the %s. The internal %s error: %v", e.ClassName, Engine, Engine, e.Err)
}

func (e *InvalidClassFileError) Unwrap() error {
	return e.Err
}
