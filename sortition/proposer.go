package sortition

import (
	"context"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
)

// Proposer produces sortitions for the local validator
type Proposer struct {
	vrf        crypto.VRFI
	privateKey []byte
	publicKey  []byte
	modulus    []byte
	service    *lib.VDFService
	log        lib.LoggerI
}

// NewProposer() creates a proposer for the local key pair
func NewProposer(vrf crypto.VRFI, privateKey, publicKey, modulus []byte, service *lib.VDFService, log lib.LoggerI) *Proposer {
	return &Proposer{
		vrf:        vrf,
		privateKey: privateKey,
		publicKey:  publicKey,
		modulus:    modulus,
		service:    service,
		log:        log.WithModule("proposer"),
	}
}

// Propose() *blocking call* runs the whole proposer side: VRF, difficulty, VDF and a self check
//   - a stale sortition is returned unsolved together with ErrStaleSortition
//   - a cancelled context returns (nil, true, nil)
func (p *Proposer) Propose(ctx context.Context, params lib.SortitionParams, vrfInput, vdfInput []byte, voteCount, totalVoteCount uint64) (s *VdfSortition, cancelled bool, err lib.ErrorI) {
	if s, err = NewVdfSortition(params, p.vrf, p.privateKey, vrfInput, voteCount, totalVoteCount); err != nil {
		return nil, false, err
	}
	if s.IsStale(params) {
		p.log.Debugf("Sortition is stale with threshold %d", s.Threshold())
		return s, false, lib.ErrStaleSortition()
	}
	puzzle, err := s.NewPuzzle(params, vdfInput, p.modulus)
	if err != nil {
		return nil, false, err
	}
	outcome, elapsed, err := p.service.Solve(ctx, puzzle)
	if err != nil {
		return nil, false, err
	}
	solution, ok := outcome.Solution()
	if !ok {
		p.log.Infof("VDF cancelled at difficulty %d after %s", s.Difficulty, elapsed)
		return nil, true, nil
	}
	s.SetSolution(solution, elapsed)
	p.log.Infof("VDF solved at difficulty %d in %s", s.Difficulty, elapsed)
	// never publish a sortition peers would reject
	if err = s.VerifyVdf(params, p.vrf, p.modulus, Candidate{
		PublicKey:      p.publicKey,
		VrfInput:       vrfInput,
		VdfInput:       vdfInput,
		VoteCount:      voteCount,
		TotalVoteCount: totalVoteCount,
	}); err != nil {
		return nil, false, err
	}
	return s, false, nil
}
