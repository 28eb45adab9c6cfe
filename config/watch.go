package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch loads path and reloads it on every write. onChange receives the
// reloaded configuration, or the decode error when the new file is invalid.
// The watcher lives for the rest of the process.
func Watch(path string, onChange func(*Config, error)) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err == nil {
			err = next.Validate()
		}
		onChange(next, err)
	})
	v.WatchConfig()

	return cfg, nil
}
