package flow

import (
	"errors"
)

// Application errors
var (
	// Engine registration errors
	ErrEngineNotRegistered     = errors.New("engine not registered")
	ErrEngineAlreadyRegistered = errors.New("engine already registered")
	ErrNilEngine               = errors.New("engine is nil")
	ErrRegistrationClosed      = errors.New("engines cannot be registered after start")

	// Observer errors
	ErrNilObserver = errors.New("observer is nil")
)
