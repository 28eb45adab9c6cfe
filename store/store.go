package store

import (
	"fmt"

	"github.com/oron-mozes/creo-sub000/core"
)

// DriverMemory selects InMemoryStore.
const DriverMemory = "memory"

// New builds the store named by driver. The returned close func is never nil.
func New(driver, dsn string) (core.Store, func() error, error) {
	switch driver {
	case "", DriverMemory:
		return NewInMemoryStore(), func() error { return nil }, nil
	case DriverSQLite, DriverSQLite3:
		s, err := Open(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", driver, err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}
