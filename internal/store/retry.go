package store

import (
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// errBusy is returned once a RetryPolicy runs out of attempts.
var errBusy = errors.New("database busy")

// isBusy reports whether err is a sqlite SQLITE_BUSY answer. Extended
// result codes carry the primary code in the low byte.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_BUSY
}

// do runs fn until it succeeds, fails with a non-busy error, or the policy
// gives up. Every busy answer waits Backoff and is counted in stats.
func (p RetryPolicy) do(stats *statsCollector, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isBusy(err) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w: %w after %d attempts: %v", ErrBackend, errBusy, attempt, err)
		}
		stats.incrementBusyRetries()
		time.Sleep(p.Backoff)
	}
}
