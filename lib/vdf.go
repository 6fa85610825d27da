package lib

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/canopy-network/sortition/lib/crypto"
)

// VDFService is a structure that wraps Verifiable Delay Functionality
// Verifiable Delay Function (VDF) is a cryptographic algorithm that requires a specific,
// non-parallelizable amount of time to compute, while its result can be quickly and easily verified
// Here's how it works:
//   - VDFService.Start() launches a proof for a puzzle in its own goroutine and returns a VDFTask handle
//   - There's two paths: Solved and Cancelled
//   - - The solved path is a non-interrupted run. The task holds the (proof, output) solution
//   - - The cancelled path is a premature exit, triggered by VDFTask.Stop() or by the context; the task holds no solution
//
// Each task owns its cancellation token, so proofs never share state with one another
type VDFService struct {
	running *atomic.Int64 // number of proofs currently in flight
	metrics *Metrics      // telemetry, may be nil
	log     LoggerI
}

// VDFTask is a handle to one background proof
type VDFTask struct {
	Puzzle  *crypto.VDFPuzzle         // the puzzle being solved
	token   *crypto.CancellationToken // the shared cancellation flag
	done    chan struct{}             // closed once the proof returns
	outcome crypto.ProveOutcome       // the outcome, valid after done
	err     ErrorI                    // a hard failure, valid after done
	elapsed time.Duration             // how long the proof ran
}

// NewVDFService() creates a new instance of the VDF service
func NewVDFService(metrics *Metrics, log LoggerI) *VDFService {
	return &VDFService{running: &atomic.Int64{}, metrics: metrics, log: log.WithModule("vdf")}
}

// Start() launches a proof in the background; cancelling ctx has the same effect as VDFTask.Stop()
func (s *VDFService) Start(ctx context.Context, puzzle *crypto.VDFPuzzle) *VDFTask {
	// initialize the task with a fresh token
	task := &VDFTask{Puzzle: puzzle, token: crypto.NewCancellationToken(), done: make(chan struct{})}
	// the context feeds the token
	unbind := task.token.BindContext(ctx)
	// track the in-flight count
	s.running.Add(1)
	s.metrics.ProveStarted()
	// log the start of the proof
	s.log.Debugf("Starting VDF proof with difficulty %d", puzzle.Difficulty)
	go func() {
		// release the context binding and signal completion on exit
		defer close(task.done)
		defer unbind()
		defer s.running.Add(-1)
		// track the start time to measure the 'processing time'
		startTime := time.Now()
		// run the proof - if Stop() is called this exits prematurely without a solution
		outcome, err := puzzle.Prove(task.token)
		task.elapsed = time.Since(startTime)
		// convert hard failures
		if err != nil {
			task.err = NewVDFError(err, puzzle.Difficulty)
			s.metrics.ProveFailed()
			s.log.Errorf("VDF proof failed after %s: %s", task.elapsed, err.Error())
			return
		}
		task.outcome = outcome
		s.metrics.ProveFinished(outcome.Cancelled(), task.elapsed)
		// log the outcome
		if outcome.Cancelled() {
			s.log.Debugf("VDF proof cancelled after %d iterations (%s)", outcome.Iterations, task.elapsed)
		} else {
			s.log.Debugf("VDF proof solved with %d iterations in %s", outcome.Iterations, task.elapsed)
		}
	}()
	return task
}

// Solve() *blocking call* runs a proof to completion or until ctx is done
func (s *VDFService) Solve(ctx context.Context, puzzle *crypto.VDFPuzzle) (crypto.ProveOutcome, time.Duration, ErrorI) {
	return s.Start(ctx, puzzle).Wait()
}

// Running() returns the number of proofs in flight
func (s *VDFService) Running() int64 { return s.running.Load() }

// Stop() asks the proof to exit; it returns immediately and is safe to call more than once
func (t *VDFTask) Stop() { t.token.Cancel() }

// Done() is closed once the proof has returned
func (t *VDFTask) Done() <-chan struct{} { return t.done }

// Wait() *blocking call* waits for the proof and returns its outcome and running time
func (t *VDFTask) Wait() (crypto.ProveOutcome, time.Duration, ErrorI) {
	<-t.done
	return t.outcome, t.elapsed, t.err
}

// NewVDFError() converts a crypto layer error into a sortition error
func NewVDFError(err error, difficulty uint16) ErrorI {
	switch {
	case errors.Is(err, crypto.ErrInvalidModulus):
		return ErrInvalidModulus()
	case errors.Is(err, crypto.ErrIterationsOverflow):
		return ErrIterationsOverflow(difficulty)
	case errors.Is(err, crypto.ErrHashToPrime):
		return ErrHashToPrime()
	default:
		return ErrProveFailed(err)
	}
}
