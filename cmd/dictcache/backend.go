package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/at-ishikawa/dictcache/internal/config"
)

// Backend is the --backend flag. The zero value keeps the configured backend.
type Backend string

var _ pflag.Value = (*Backend)(nil)

func (b *Backend) Set(val string) error {
	for _, backend := range config.AllPersistenceBackends {
		if val == string(backend) {
			*b = Backend(backend)
			return nil
		}
	}
	return fmt.Errorf("invalid backend: %s", val)
}

func (b Backend) String() string {
	return string(b)
}

func (b *Backend) Type() string {
	return "Backend"
}

func allBackends() []string {
	backends := make([]string, 0, len(config.AllPersistenceBackends))
	for _, backend := range config.AllPersistenceBackends {
		backends = append(backends, string(backend))
	}
	return backends
}
