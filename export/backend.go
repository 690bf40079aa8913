// Package export hands renewed certificates to optional post-renewal
// targets such as notification topics or object stores. Backends register
// themselves by name from their init functions.
package export

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/z0mbie42/rz-go/v2"
)

// Backend receives the DER of every renewed certificate. Private keys are
// never passed to a backend.
type Backend interface {
	Configure(map[string]interface{}) error
	Export(ctx context.Context, certPath string, der []byte) error
}

type BackendFactory func(rz.Logger) (Backend, error)

var backendFactoriesMutex sync.RWMutex
var backendFactories = make(map[string]BackendFactory)

func RegisterBackend(
	name string,
	bf BackendFactory,
) {
	backendFactoriesMutex.Lock()
	defer backendFactoriesMutex.Unlock()

	if bf == nil {
		panic(fmt.Sprintf("backend: RegisterBackend('%s', nil)", name))
	}
	if _, dup := backendFactories[name]; dup {
		panic(fmt.Sprintf("backend: Register called twice for backend '%s'", name))
	}
	backendFactories[name] = bf
}

func GetBackend(
	name string,
	logger rz.Logger,
) (
	Backend,
	error,
) {
	backendFactoriesMutex.RLock()
	factoryFunction, found := backendFactories[name]
	backendFactoriesMutex.RUnlock()

	if !found {
		return nil, nil
	}
	return factoryFunction(logger)
}

func InitBackend(
	name string,
	logger rz.Logger,
) (
	Backend,
	error,
) {
	backend, err := GetBackend(name, logger)
	if err != nil {
		return nil, fmt.Errorf("could not init backend '%s': %w", name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("unknown backend '%s'", name)
	}

	return backend, nil
}
