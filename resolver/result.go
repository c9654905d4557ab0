package resolver

import "github.com/git-pkgs/pluginverifier/classfile"

// Result is the outcome of resolving one class. It is one of Found,
// NotFound, Invalid or FailedToRead.
type Result interface {
	isResult()
}

// Found carries the decoded class and where it came from.
type Found struct {
	Class  *classfile.ClassFile
	Origin Origin
}

// NotFound means no container indexes the class.
type NotFound struct{}

// Invalid means the bytes exist but are not a valid class file.
// It is a finding about the plugin, not an infrastructure failure.
type Invalid struct {
	Reason string
}

// FailedToRead means the bytes could not be read.
type FailedToRead struct {
	Reason string
	Err    error
}

func (Found) isResult()        {}
func (NotFound) isResult()     {}
func (Invalid) isResult()      {}
func (FailedToRead) isResult() {}

func (f FailedToRead) Unwrap() error { return f.Err }

// Kind names the variant of r: "found", "not_found", "invalid" or "failed_to_read".
func Kind(r Result) string {
	switch r.(type) {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Invalid:
		return "invalid"
	case FailedToRead:
		return "failed_to_read"
	default:
		return "unknown"
	}
}
