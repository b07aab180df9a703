package retry

import (
	"fmt"
	"log"
	"time"
)

// sleep is swapped out in tests.
var sleep = time.Sleep

// Policy is a bounded fixed-delay retry attached to an outbound call site.
// Attempts is the total number of tries, not the number of retries.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs fn until it succeeds or the attempts are exhausted. Every failure
// is retryable; the last underlying error is returned as-is.
func (p Policy) Do(name string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			log.Printf("[Retry] %s attempt %d/%d failed: %v", name, attempt, attempts, err)
			if attempt < attempts {
				sleep(p.Delay)
			}
			continue
		}
		return nil
	}
	return lastErr
}

// String describes the policy for logs.
func (p Policy) String() string {
	return fmt.Sprintf("retry(attempts=%d, delay=%s)", p.Attempts, p.Delay)
}
