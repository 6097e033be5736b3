package registry

import "errors"

// Static errors for registry package
var (
	// ErrDuplicateName is returned when a name already holds an instance or a factory.
	ErrDuplicateName = errors.New("service name already registered")

	// ErrDuplicateAlias is returned when an alias is registered twice.
	ErrDuplicateAlias = errors.New("service alias already registered")

	// ErrServiceNotFound is returned when a name resolves to nothing.
	ErrServiceNotFound = errors.New("service not found")

	// ErrAliasCycle is returned when alias resolution revisits a name.
	ErrAliasCycle = errors.New("alias cycle detected")

	// ErrFactoryCycle is returned when a factory, directly or through other
	// factories, resolves the name it is building.
	ErrFactoryCycle = errors.New("factory cycle detected")

	// ErrServiceTypeMismatch is returned by Get when the resolved value has another type.
	ErrServiceTypeMismatch = errors.New("service has unexpected type")

	// ErrNilFactory is returned when RegisterFactory is called with a nil factory.
	ErrNilFactory = errors.New("factory is nil")
)
