package tenant

import "time"

// LinearBackOff waits attempt × Step between tries: Step, 2×Step, 3×Step...
// It implements backoff.BackOff; the attempt ceiling is enforced by the caller.
type LinearBackOff struct {
	Step    time.Duration
	attempt int
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.Step
}

func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
