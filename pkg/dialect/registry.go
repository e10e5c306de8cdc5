package dialect

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/analyst/pkg/core"
)

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[core.Dialect]*Capabilities)
)

// UnknownDialectError is returned when a dialect has no registered entry.
// It is a configuration error: jobs carrying an unknown dialect abort at
// plan and never enter the refinement loop.
type UnknownDialectError struct {
	Dialect core.Dialect
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown dialect %q (registered: %s)", e.Dialect, strings.Join(names(), ", "))
}

// Get returns the capability record for a dialect.
func Get(d core.Dialect) (*Capabilities, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	caps, ok := dialects[core.Dialect(strings.ToLower(string(d)))]
	if !ok {
		return nil, &UnknownDialectError{Dialect: d}
	}
	return caps, nil
}

// Register adds a dialect to the registry. Called from init functions;
// registering the same name twice replaces the earlier entry.
func Register(caps *Capabilities) {
	caps.functions = make(map[string]struct{}, len(caps.Functions))
	for _, fn := range caps.Functions {
		caps.functions[strings.ToUpper(fn)] = struct{}{}
	}
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[core.Dialect(strings.ToLower(string(caps.Name)))] = caps
}

// List returns all registered dialects, sorted by name.
func List() []core.Dialect {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]core.Dialect, 0, len(dialects))
	for d := range dialects {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func names() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]string, 0, len(dialects))
	for d := range dialects {
		out = append(out, string(d))
	}
	sort.Strings(out)
	return out
}
