package fetch

import (
	"fmt"
	"time"
)

// Policy is an explicit retry policy: how many attempts a fetch gets and how
// long to wait between them. It replaces hidden retry-by-exception control
// flow with a value the caller injects.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy matches the pipeline contract: three attempts with a fixed
// one-second pause. Individual image failures are tolerable, the session
// continues, so the retry is bounded.
var DefaultPolicy = Policy{MaxAttempts: 3, Backoff: time.Second}

func (p Policy) Run(op func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		fmt.Printf("attempt %d failed: %v\n", attempt, err)
		if attempt < p.MaxAttempts {
			time.Sleep(p.Backoff)
		}
	}
	return err
}

// FetchError carries the originating image identifier so the caller can log
// which acquisition failed without aborting the session.
type FetchError struct {
	ImageID  string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch image %s after %d attempts: %v", e.ImageID, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
