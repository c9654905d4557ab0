package resolver

// Option configures a source resolver.
type Option func(*options)

type options struct {
	mode   ReadMode
	origin Origin
}

func buildOptions(opts []Option) options {
	o := options{mode: Signatures}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReadMode sets how classes are decoded. The default is Signatures.
func WithReadMode(m ReadMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithOrigin sets the origin attached to every class of the container.
func WithOrigin(origin Origin) Option {
	return func(o *options) {
		o.origin = origin
	}
}
