package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"filerelay/internal/config"
)

// registration binds one outbound route to the directory it watches.
type registration struct {
	key     string
	route   config.OutboundRoute
	pattern *regexp.Regexp
}

// registry maps a watched directory to the routes sharing it, in route key
// order. It is built once before the loop starts and then only read.
type registry struct {
	byDir map[string][]registration
	byKey map[string]registration
	dirs  []string
}

func buildRegistry(cfg *config.Config) (*registry, error) {
	reg := &registry{
		byDir: map[string][]registration{},
		byKey: map[string]registration{},
	}
	for _, key := range cfg.OutboundKeys() {
		route := cfg.OutboundRoutes[key]
		pattern, err := route.CompilePattern()
		if err != nil {
			return nil, &StartupError{Op: "compile pattern for route " + key, Err: err}
		}
		dir, err := filepath.Abs(filepath.Clean(route.SearchDirectory))
		if err != nil {
			return nil, &StartupError{Op: "resolve search directory", Path: route.SearchDirectory, Err: err}
		}
		entry := registration{key: key, route: route, pattern: pattern}
		if _, seen := reg.byDir[dir]; !seen {
			reg.dirs = append(reg.dirs, dir)
		}
		reg.byDir[dir] = append(reg.byDir[dir], entry)
		reg.byKey[key] = entry
	}
	return reg, nil
}

// ensureDirs creates every watched directory that does not yet exist.
func (r *registry) ensureDirs() error {
	for _, dir := range r.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &StartupError{Op: "create search directory", Path: dir, Err: err}
		}
	}
	return nil
}

// routesFor returns the routes watching the directory containing path.
func (r *registry) routesFor(path string) []registration {
	return r.byDir[filepath.Dir(path)]
}

func (r *registry) route(key string) (registration, error) {
	entry, ok := r.byKey[key]
	if !ok {
		return registration{}, fmt.Errorf("unknown outbound route %q", key)
	}
	return entry, nil
}
