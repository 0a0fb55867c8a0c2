package interp

import (
	"fmt"
	"sort"
	"time"

	"github.com/wildfunctions/calcblocks/pkg/block"
)

// Config carries the settings an interpreter constructor may need.
type Config struct {
	Command []string      // program and arguments, for interpreters that run one
	Dir     string        // working directory for that program
	Timeout time.Duration // per-block limit; zero means none
}

var registry = map[string]func(cfg Config) (block.Interpreter, error){}

// Register adds an interpreter constructor to the registry.
func Register(name string, constructor func(cfg Config) (block.Interpreter, error)) {
	registry[name] = constructor
}

// Get constructs an interpreter by name.
func Get(name string, cfg Config) (block.Interpreter, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown interpreter: %s", name)
	}
	return ctor(cfg)
}

// Names returns all registered interpreter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
