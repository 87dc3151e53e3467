package storage

import (
	"errors"
	"fmt"

	"github.com/starford/planner/internal/apperr"
)

// Quota wraps a Provider and rejects writes that would push the total
// stored size over a byte budget, the way browser storage does.
type Quota struct {
	Provider
	max int64
}

// WithQuota returns p limited to maxBytes. A non-positive limit disables the check.
func WithQuota(p Provider, maxBytes int64) Provider {
	if maxBytes <= 0 {
		return p
	}
	return &Quota{Provider: p, max: maxBytes}
}

// Set checks the budget against every other key before delegating.
func (q *Quota) Set(key string, value []byte) error {
	used, err := q.usedExcept(key)
	if err != nil {
		return err
	}
	if used+int64(len(key)+len(value)) > q.max {
		return fmt.Errorf("storage: set %s (%d bytes, %d in use, limit %d): %w",
			key, len(value), used, q.max, apperr.ErrQuotaExceeded)
	}
	return q.Provider.Set(key, value)
}

func (q *Quota) usedExcept(key string) (int64, error) {
	keys, err := q.Provider.Keys()
	if err != nil {
		return 0, err
	}
	var used int64
	for _, k := range keys {
		if k == key {
			continue
		}
		v, err := q.Provider.Get(k)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return 0, err
		}
		used += int64(len(k) + len(v))
	}
	return used, nil
}
