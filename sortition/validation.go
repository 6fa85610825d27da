package sortition

import (
	"context"
	"time"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"golang.org/x/sync/errgroup"
)

// ValidationState is a step of the validation state machine
//
//	Unverified -> VrfChecked -> DifficultyChecked -> VdfChecked -> Accepted
//	any step   -> Rejected
type ValidationState int

const (
	Unverified ValidationState = iota
	VrfChecked
	DifficultyChecked
	VdfChecked
	Accepted
	Rejected
)

func (s ValidationState) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case VrfChecked:
		return "vrf_checked"
	case DifficultyChecked:
		return "difficulty_checked"
	case VdfChecked:
		return "vdf_checked"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Candidate is what a validator knows about the proposer of a sortition
type Candidate struct {
	PublicKey      []byte // the proposer's VRF public key
	VrfInput       []byte // the VRF seed, see MakeVrfInput()
	VdfInput       []byte // the VDF message
	VoteCount      uint64 // the proposer's votes
	TotalVoteCount uint64 // all votes
}

// Verdict is the end state of a validation
type Verdict struct {
	State      ValidationState // Accepted or Rejected
	LastPassed ValidationState // the last step completed before the verdict
	Expected   uint16          // the recomputed difficulty, set once the VRF passed
	Err        lib.ErrorI      // the rejection reason, nil when accepted
}

// Accepted() returns true if every check passed
func (v *Verdict) Accepted() bool { return v.State == Accepted }

// Reason() is a short label of the verdict, used for telemetry
func (v *Verdict) Reason() string {
	if v.Err == nil {
		return v.State.String()
	}
	switch v.Err.Code() {
	case lib.CodeInvalidVrf:
		return "invalid_vrf"
	case lib.CodeInvalidDifficulty:
		return "invalid_difficulty"
	case lib.CodeInvalidVdfSolution:
		return "invalid_vdf_solution"
	default:
		return "error"
	}
}

// advance() moves to the next state
func (v *Verdict) advance(next ValidationState) { v.LastPassed, v.State = next, next }

// reject() ends the validation with a reason
func (v *Verdict) reject(err lib.ErrorI) *Verdict {
	v.State, v.Err = Rejected, err
	return v
}

// Pipeline validates sortitions received from other proposers
// The checks run in a fixed order and the first failure decides the verdict
type Pipeline struct {
	params  lib.SortitionParams
	vrf     crypto.VRFI
	modulus []byte
	workers int
	metrics *lib.Metrics
	log     lib.LoggerI
}

// NewPipeline() creates a validation pipeline for one set of sortition parameters
func NewPipeline(params lib.SortitionParams, vrf crypto.VRFI, modulus []byte, workers int, metrics *lib.Metrics, log lib.LoggerI) *Pipeline {
	return &Pipeline{params: params, vrf: vrf, modulus: modulus, workers: max(workers, 1), metrics: metrics, log: log.WithModule("validation")}
}

// WithParams() returns a copy of the pipeline using other parameters
func (p *Pipeline) WithParams(params lib.SortitionParams) *Pipeline {
	cp := *p
	cp.params = params
	return &cp
}

// Params() returns the parameters the pipeline validates against
func (p *Pipeline) Params() lib.SortitionParams { return p.params }

// Run() validates one sortition: VRF, then difficulty, then VDF
func (p *Pipeline) Run(s *VdfSortition, c Candidate) (v *Verdict) {
	start := time.Now()
	v = &Verdict{State: Unverified, LastPassed: Unverified}
	defer func() {
		p.metrics.UpdateValidation(v.Reason(), time.Since(start))
		if !v.Accepted() {
			p.log.Debugf("Sortition rejected after %s: %s", v.LastPassed, v.Err.Error())
		}
	}()
	if s == nil {
		return v.reject(lib.ErrNilSortition())
	}
	// the proof must be a valid VRF evaluation by the candidate over the seed
	if !s.Verify(p.vrf, c.PublicKey, c.VrfInput, ComputeThreshold(c.VoteCount, c.TotalVoteCount)) {
		return v.reject(lib.ErrInvalidVrf())
	}
	v.advance(VrfChecked)
	// the claimed difficulty must be the one the VRF output dictates
	v.Expected = DifficultyOf(s, p.params)
	if v.Expected != s.Difficulty {
		return v.reject(lib.ErrInvalidDifficulty(s.Difficulty, v.Expected))
	}
	v.advance(DifficultyChecked)
	// the solution must solve the puzzle fixed by the input and the difficulty
	puzzle, err := s.NewPuzzle(p.params, c.VdfInput, p.modulus)
	if err != nil {
		p.log.Errorf("Unable to build the vdf puzzle: %s", err.Error())
		return v.reject(lib.ErrInvalidVdfSolution())
	}
	if !puzzle.Verify(s.Solution) {
		return v.reject(lib.ErrInvalidVdfSolution())
	}
	v.advance(VdfChecked)
	v.advance(Accepted)
	return v
}

// BatchItem is one entry of a batch validation
type BatchItem struct {
	Sortition *VdfSortition
	Candidate Candidate
}

// RunBatch() validates many sortitions concurrently; verdicts are returned in input order
// Each item must hold its own *VdfSortition. The only error is the context's.
func (p *Pipeline) RunBatch(ctx context.Context, items []BatchItem) ([]*Verdict, error) {
	verdicts := make([]*Verdict, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdicts[i] = p.Run(items[i].Sortition, items[i].Candidate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// VerifyVdf() checks a received sortition and returns the first failure: invalid VRF, wrong difficulty or bad VDF
func (s *VdfSortition) VerifyVdf(params lib.SortitionParams, vrf crypto.VRFI, modulus []byte, c Candidate) lib.ErrorI {
	return NewPipeline(params, vrf, modulus, 1, nil, lib.NewNullLogger()).Run(s, c).Err
}
