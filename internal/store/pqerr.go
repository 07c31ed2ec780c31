package store

import (
	"errors"

	"github.com/lib/pq"
)

// matchesPQCode reports whether err is a *pq.Error with the given SQLSTATE code.
func matchesPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
