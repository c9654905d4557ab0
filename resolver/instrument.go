package resolver

// Observer is notified of every class lookup outcome.
type Observer interface {
	ObserveResolution(kind string)
}

type instrumented struct {
	Resolver
	observer Observer
}

// Instrument reports the Kind of every ResolveClass result of r to observer.
func Instrument(r Resolver, observer Observer) Resolver {
	return &instrumented{Resolver: r, observer: observer}
}

func (i *instrumented) ResolveClass(name string) Result {
	res := i.Resolver.ResolveClass(name)
	i.observer.ObserveResolution(Kind(res))
	return res
}

func (i *instrumented) ProcessAllClasses(visit func(Result) bool) bool {
	return i.Resolver.ProcessAllClasses(func(res Result) bool {
		i.observer.ObserveResolution(Kind(res))
		return visit(res)
	})
}
