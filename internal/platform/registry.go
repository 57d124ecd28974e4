package platform

import (
	"fmt"
	"sort"
	"sync"
)

// Options are passed to a driver factory when the gateway is opened.
type Options struct {
	Token string
	AppID string
}

// Factory builds a Gateway from deployment options.
type Factory func(opts Options) (Gateway, error)

var (
	driversMu sync.Mutex
	drivers   = map[string]Factory{}
)

// Register makes a gateway driver available under name. Drivers register
// from their package init, so which transports exist is decided at link
// time.
func Register(name string, f Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if f == nil {
		panic("platform: nil driver factory")
	}
	if _, dup := drivers[name]; dup {
		panic("platform: duplicate driver " + name)
	}
	drivers[name] = f
}

// Open builds the gateway for the named driver.
func Open(name string, opts Options) (Gateway, error) {
	driversMu.Lock()
	f, ok := drivers[name]
	driversMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("platform: unknown gateway driver %q (built-in: %v)", name, Drivers())
	}
	return f(opts)
}

// Drivers lists the registered driver names.
func Drivers() []string {
	driversMu.Lock()
	defer driversMu.Unlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
