package resolveguard

type state uint8

const (
	stateResolving state = iota + 1
	stateDone
)

// Pointer runs a resolve step at most once per key.
type Pointer[T comparable] struct {
	states map[T]state
}

// NewPointer returns an empty guard.
func NewPointer[T comparable]() *Pointer[T] {
	return &Pointer[T]{states: make(map[T]state)}
}

// Resolve runs fn for key unless it already completed. A call made while fn
// is still running for the same key returns the result of onCycle, or nil
// when onCycle is nil. A failed fn leaves the key unresolved.
func (p *Pointer[T]) Resolve(key T, onCycle func() error, fn func() error) error {
	switch p.states[key] {
	case stateDone:
		return nil
	case stateResolving:
		if onCycle == nil {
			return nil
		}
		return onCycle()
	}
	p.states[key] = stateResolving
	if err := fn(); err != nil {
		delete(p.states, key)
		return err
	}
	p.states[key] = stateDone
	return nil
}

// Done reports whether key completed.
func (p *Pointer[T]) Done(key T) bool {
	return p.states[key] == stateDone
}

// Resolving reports whether key is in progress.
func (p *Pointer[T]) Resolving(key T) bool {
	return p.states[key] == stateResolving
}

// Scope is a visited-set tracker such as a cycle detector.
type Scope[K comparable] interface {
	IsVisited(K) bool
	WithScope(K, func() error) error
}

// ResolveNamed runs fn inside the scope of key unless key was visited.
func ResolveNamed[K comparable](scope Scope[K], key K, fn func() error) error {
	if scope.IsVisited(key) {
		return nil
	}
	return scope.WithScope(key, fn)
}
