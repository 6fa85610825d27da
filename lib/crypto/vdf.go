package crypto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
)

/*
	Verifiable Delay Function (Wesolowski construction over an RSA group)

	A VDF requires a fixed number of strictly sequential steps to evaluate, while its result can be verified with a
	handful of modular exponentiations.

	Given a modulus N, a base x = message mod N and T = 2^difficulty:
	  - output  y = x^(2^T) mod N                 (T sequential squarings)
	  - prime   p = HashToPrime(lambda, x||y)      (Fiat-Shamir challenge, x shifted by bitlen(N))
	  - proof   π = x^floor(2^T / p) mod N         (computed by long division of 2^T by p, T more steps)
	The verifier computes r = 2^T mod p and accepts iff π^p * x^r ≡ y (mod N).

	The group order of N must be unknown to the prover. Moduli are supplied by configuration.

	The Fiat-Shamir prime comes from a deterministic blake2b search (see HashToPrime). Peers that derive the prime
	from a seeded random generator instead pick a different p for the same (x, y), so their proofs do not verify here
	and ours do not verify there. Only the wire encoding of a solution is shared with such peers.
*/

const (
	// MaxProveDifficulty is the first difficulty whose iteration count overflows the sequential counter
	MaxProveDifficulty = 64
	// poll interval bounds: check the cancellation token at most every 10000 and at least every 1 squaring
	minPollInterval = 1
	maxPollInterval = 10000
)

var (
	ErrInvalidModulus     = errors.New("vdf: modulus must be at least 2")
	ErrIterationsOverflow = fmt.Errorf("vdf: difficulty must be below %d to prove", MaxProveDifficulty)
)

// VDFPuzzle is a fully constructed time-lock puzzle; it is immutable and safe to share
type VDFPuzzle struct {
	Lambda     uint32 // security parameter bounding the Fiat-Shamir prime size
	Difficulty uint16 // log2 of the number of sequential squarings
	message    []byte // the raw puzzle input
	modulus    []byte // the raw big-endian RSA modulus
	n          *big.Int
	x          *big.Int
}

// VDFSolution is the (proof, output) pair of a solved puzzle as minimal big-endian byte strings
type VDFSolution struct {
	Proof  []byte `json:"proof"`
	Output []byte `json:"output"`
}

// IsEmpty() returns true if neither half of the solution is populated
func (s VDFSolution) IsEmpty() bool { return len(s.Proof) == 0 && len(s.Output) == 0 }

// Equals() compares two solutions byte for byte
func (s VDFSolution) Equals(o VDFSolution) bool {
	return bytes.Equal(s.Proof, o.Proof) && bytes.Equal(s.Output, o.Output)
}

// ProveStatus discriminates the two non-error ends of a proof
type ProveStatus int

const (
	ProveSolved ProveStatus = iota
	ProveCancelled
)

func (s ProveStatus) String() string {
	switch s {
	case ProveSolved:
		return "solved"
	case ProveCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProveOutcome is the result of Prove(); a cancelled outcome holds no solution
type ProveOutcome struct {
	Status     ProveStatus
	Iterations uint64 // sequential squarings completed before returning
	solution   VDFSolution
}

// Solution() returns the solution only if the puzzle was solved
func (o ProveOutcome) Solution() (VDFSolution, bool) {
	if o.Status != ProveSolved {
		return VDFSolution{}, false
	}
	return o.solution, true
}

// Cancelled() returns true if the proof was abandoned through its token
func (o ProveOutcome) Cancelled() bool { return o.Status == ProveCancelled }

// NewVDFPuzzle() constructs a puzzle from a security parameter, a difficulty, the input message and the modulus
func NewVDFPuzzle(lambda uint32, difficulty uint16, message, modulus []byte) (*VDFPuzzle, error) {
	n := new(big.Int).SetBytes(modulus)
	if n.Cmp(big.NewInt(2)) < 0 {
		return nil, ErrInvalidModulus
	}
	return &VDFPuzzle{
		Lambda:     lambda,
		Difficulty: difficulty,
		message:    bytes.Clone(message),
		modulus:    bytes.Clone(modulus),
		n:          n,
		x:          new(big.Int).Mod(new(big.Int).SetBytes(message), n),
	}, nil
}

// Message() returns a copy of the puzzle input
func (p *VDFPuzzle) Message() []byte { return bytes.Clone(p.message) }

// Modulus() returns a copy of the raw modulus
func (p *VDFPuzzle) Modulus() []byte { return bytes.Clone(p.modulus) }

// Equals() returns true if both puzzles were built from byte-identical inputs
func (p *VDFPuzzle) Equals(o *VDFPuzzle) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Lambda == o.Lambda && p.Difficulty == o.Difficulty &&
		bytes.Equal(p.message, o.message) && bytes.Equal(p.modulus, o.modulus)
}

// Iterations() returns T = 2^difficulty or an error if it does not fit a uint64 counter
func (p *VDFPuzzle) Iterations() (uint64, error) {
	if p.Difficulty >= MaxProveDifficulty {
		return 0, ErrIterationsOverflow
	}
	return uint64(1) << p.Difficulty, nil
}

// PollInterval() is how many squarings the prover performs between cancellation checks
func PollInterval(iterations uint64) uint64 {
	return min(max(iterations/100, minPollInterval), maxPollInterval)
}

// Prove() *blocking call* solves the puzzle; a cancelled token ends it early with a ProveCancelled outcome
// the token is checked before the first squaring and then every PollInterval() squarings of both passes
func (p *VDFPuzzle) Prove(token *CancellationToken) (ProveOutcome, error) {
	t, err := p.Iterations()
	if err != nil {
		return ProveOutcome{}, err
	}
	poll := PollInterval(t)
	// first pass: y = x^(2^T) mod N
	y := new(big.Int).Set(p.x)
	for i := uint64(0); i < t; i++ {
		if i%poll == 0 && token.IsCancelled() {
			return ProveOutcome{Status: ProveCancelled, Iterations: i}, nil
		}
		y.Mul(y, y).Mod(y, p.n)
	}
	prime, err := p.challenge(y)
	if err != nil {
		return ProveOutcome{}, err
	}
	// second pass: π = x^floor(2^T / p) mod N, the quotient bits come out of the long division of 2^T by p
	proof, r := big.NewInt(1), big.NewInt(1)
	for i := uint64(0); i < t; i++ {
		if i%poll == 0 && token.IsCancelled() {
			return ProveOutcome{Status: ProveCancelled, Iterations: t}, nil
		}
		proof.Mul(proof, proof).Mod(proof, p.n)
		r.Lsh(r, 1)
		if r.Cmp(prime) >= 0 {
			r.Sub(r, prime)
			proof.Mul(proof, p.x).Mod(proof, p.n)
		}
	}
	return ProveOutcome{
		Status:     ProveSolved,
		Iterations: t,
		solution:   VDFSolution{Proof: proof.Bytes(), Output: y.Bytes()},
	}, nil
}

// Verify() checks a solution against this puzzle; it never panics and is safe for concurrent use
func (p *VDFPuzzle) Verify(solution VDFSolution) bool {
	proof, ok := p.parseElement(solution.Proof)
	if !ok {
		return false
	}
	y, ok := p.parseElement(solution.Output)
	if !ok {
		return false
	}
	prime, err := p.challenge(y)
	if err != nil {
		return false
	}
	// r = 2^(2^difficulty) mod p by repeated squaring, valid for any difficulty
	r := big.NewInt(2)
	r.Mod(r, prime)
	for i := uint16(0); i < p.Difficulty; i++ {
		r.Mul(r, r).Mod(r, prime)
	}
	// π^p * x^r mod N
	lhs := new(big.Int).Exp(proof, prime, p.n)
	lhs.Mul(lhs, new(big.Int).Exp(p.x, r, p.n)).Mod(lhs, p.n)
	return lhs.Cmp(y) == 0
}

// challenge() derives the Fiat-Shamir prime from x and y
func (p *VDFPuzzle) challenge(y *big.Int) (*big.Int, error) {
	xy := new(big.Int).Lsh(p.x, uint(p.n.BitLen()))
	xy.Add(xy, y)
	return HashToPrime(p.Lambda, xy.Bytes())
}

// parseElement() accepts only minimal, non-zero, reduced group elements
func (p *VDFPuzzle) parseElement(b []byte) (*big.Int, bool) {
	if len(b) == 0 || b[0] == 0 {
		return nil, false
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(p.n) >= 0 {
		return nil, false
	}
	return v, true
}

// CancellationToken is a shared flag that asks a running proof to stop; the zero value is usable
type CancellationToken struct {
	cancelled atomic.Bool
}

// NewCancellationToken() creates a token in the 'not cancelled' state
func NewCancellationToken() *CancellationToken { return &CancellationToken{} }

// Cancel() flags the token; it is idempotent and visible to every holder
func (t *CancellationToken) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// IsCancelled() reports the flag; a nil token is never cancelled
func (t *CancellationToken) IsCancelled() bool { return t != nil && t.cancelled.Load() }

// BindContext() cancels the token when ctx is done; the returned func detaches the binding
// A context that is already done cancels the token before BindContext() returns
func (t *CancellationToken) BindContext(ctx context.Context) (stop func() bool) {
	if ctx.Err() != nil {
		t.Cancel()
	}
	return context.AfterFunc(ctx, t.Cancel)
}
