// Package testing provides test helpers for the degbrowser application.
//
// Using t.Fatal() or t.FailNow() in goroutines causes undefined behavior because
// these methods call runtime.Goexit() which only terminates the current goroutine,
// not the test goroutine.
package testing

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// TestHelper manages error collection from goroutines.
//
// Usage:
//
//	func TestConcurrent(t *testing.T) {
//	    h := NewTestHelper(t)
//	    defer h.Wait()
//
//	    for i := 0; i < 10; i++ {
//	        go func(id int) {
//	            defer h.Done()
//	            result, err := doSomething()
//	            if err != nil {
//	                h.Errorf("goroutine %d: %v", id, err)
//	                return
//	            }
//	            if result != expected {
//	                h.Errorf("goroutine %d: got %v, want %v", id, result, expected)
//	            }
//	        }(i)
//	        h.Add(1)
//	    }
//	}
type TestHelper struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Add increments the goroutine counter.
func (h *TestHelper) Add(delta int) {
	h.wg.Add(delta)
}

// Done decrements the goroutine counter.
func (h *TestHelper) Done() {
	h.wg.Done()
}

// Errorf records a test error from a goroutine.
// This is safe to call from any goroutine.
func (h *TestHelper) Errorf(format string, args ...interface{}) {
	select {
	case h.errors <- fmt.Errorf(format, args...):
	default:
		// Buffer full, error will be lost but test will still fail
	}
}

// Error records a test error from a goroutine.
func (h *TestHelper) Error(err error) {
	if err == nil {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// Wait blocks until all goroutines are done and reports collected errors.
func (h *TestHelper) Wait() {
	h.wg.Wait()
	close(h.errors)
	for err := range h.errors {
		h.t.Error(err)
	}
}

// =============================================================================
// Timing
// =============================================================================

// Eventually polls cond until it returns true or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
