package engine

import (
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult carries an evaluation outcome through the result channel.
type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Plan, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}

		return res.plan, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
