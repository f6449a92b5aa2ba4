package middleware

import "sync"

// CircuitBreaker counts consecutive primary store errors. After
// failureThreshold of them the circuit opens and checks go to the fallback;
// while open, every successThreshold-th request probes the primary and
// successThreshold consecutive successes close it again.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            circuitState
	failureCount     int
	successCount     int
	sinceProbe       int
	failureThreshold int
	successThreshold int
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
)

func newCircuitBreaker(failureThreshold, successThreshold int) *CircuitBreaker {
	return &CircuitBreaker{
		state:            circuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
	}
}

func (c *CircuitBreaker) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == circuitOpen
}

// ShouldProbe reports whether an open circuit should try the primary on
// this request.
func (c *CircuitBreaker) ShouldProbe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != circuitOpen {
		return true
	}
	c.sinceProbe++
	if c.sinceProbe >= c.successThreshold {
		c.sinceProbe = 0
		return true
	}
	return false
}

// RecordFailure returns true when the circuit is open after the failure.
func (c *CircuitBreaker) RecordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.successCount = 0
	if c.state == circuitOpen {
		return true
	}
	if c.failureCount >= c.failureThreshold {
		c.state = circuitOpen
		return true
	}
	return false
}

// RecordSuccess returns true when the circuit is closed after the success.
func (c *CircuitBreaker) RecordSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitOpen {
		c.successCount++
		if c.successCount >= c.successThreshold {
			c.state = circuitClosed
			c.failureCount = 0
			c.successCount = 0
			c.sinceProbe = 0
			return true
		}
		return false
	}
	c.failureCount = 0
	return true
}
