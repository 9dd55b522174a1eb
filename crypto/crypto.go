// Package crypto provides implementations of the Crypto interface and the
// signature schemes used to build certificates.
package crypto

import (
	"fmt"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
	"go.uber.org/multierr"
)

type crypto struct {
	config modules.Configuration
	opts   *modules.Options

	modules.CryptoBase
}

// New returns a new implementation of the Crypto interface. It will use the given CryptoBase to create and verify
// signatures.
func New(impl modules.CryptoBase) modules.Crypto {
	return &crypto{CryptoBase: impl}
}

// InitModule gives the module access to the other modules.
func (c *crypto) InitModule(mods *modules.Core) {
	mods.Get(
		&c.config,
		&c.opts,
	)

	if mod, ok := c.CryptoBase.(modules.Module); ok {
		mod.InitModule(mods)
	}
}

// SignBlock signs a proposed block and returns a copy carrying the signature.
func (c *crypto) SignBlock(block *libra.Block) (*libra.Block, error) {
	sig, err := c.Sign(block.ToBytes())
	if err != nil {
		return nil, err
	}
	return block.WithSignature(sig), nil
}

// VerifyBlock verifies the author's signature on a block.
func (c *crypto) VerifyBlock(block *libra.Block) error {
	sig := block.Signature()
	if sig == nil {
		return fmt.Errorf("block %.8s carries no signature", block.Hash())
	}
	if sig.Participants().Len() != 1 || !sig.Participants().Contains(block.Author()) {
		return fmt.Errorf("block %.8s was not signed by its author", block.Hash())
	}
	return c.Verify(sig, block.ToBytes())
}

// CreateVote signs a vote for the given block carrying the given ledger info.
func (c *crypto) CreateVote(block *libra.Block, ledgerInfo libra.LedgerInfo) (libra.Vote, error) {
	vote := libra.NewVote(c.opts.ID(), block.Hash(), block.Round(), block.QuorumCert().Round(), ledgerInfo, nil)
	sig, err := c.Sign(vote.SignedBytes())
	if err != nil {
		return libra.Vote{}, err
	}
	return libra.NewVote(c.opts.ID(), block.Hash(), block.Round(), block.QuorumCert().Round(), ledgerInfo, sig), nil
}

// VerifyVote verifies the author's signature on a vote.
func (c *crypto) VerifyVote(vote libra.Vote) error {
	sig := vote.Signature()
	if sig == nil {
		return fmt.Errorf("vote from replica %d carries no signature", vote.Author())
	}
	if sig.Participants().Len() != 1 || !sig.Participants().Contains(vote.Author()) {
		return fmt.Errorf("vote was not signed by its declared author %d", vote.Author())
	}
	return c.Verify(sig, vote.SignedBytes())
}

// CreateQuorumCert combines votes for the same block into a quorum
// certificate. All votes must certify the same tuple, and the combined voting
// power must reach the quorum threshold.
func (c *crypto) CreateQuorumCert(votes []libra.Vote) (cert libra.QuorumCert, err error) {
	if len(votes) == 0 {
		return libra.QuorumCert{}, ErrNotAQuorum
	}
	first := votes[0]
	sigs := make([]libra.QuorumSignature, 0, len(votes))
	for _, vote := range votes {
		if vote.BlockID() != first.BlockID() || vote.Round() != first.Round() ||
			vote.ParentRound() != first.ParentRound() || vote.LedgerInfo() != first.LedgerInfo() {
			err = multierr.Append(err, ErrVoteMismatch)
			continue
		}
		sigs = append(sigs, vote.Signature())
	}

	sig, cerr := c.combine(sigs)
	if cerr != nil {
		return libra.QuorumCert{}, multierr.Combine(cerr, err)
	}
	if power := c.participantPower(sig); power < c.config.QuorumPower() {
		return libra.QuorumCert{}, multierr.Combine(ErrNotAQuorum, err)
	}
	return libra.NewQuorumCert(sig, first.Round(), first.ParentRound(), first.BlockID(), first.LedgerInfo()), nil
}

// VerifyQuorumCert verifies a quorum certificate.
func (c *crypto) VerifyQuorumCert(qc libra.QuorumCert) error {
	// genesis QC is always valid.
	if qc.BlockID() == libra.GetGenesis().Hash() {
		return nil
	}
	sig := qc.Signature()
	if sig == nil {
		return fmt.Errorf("QC for round %d carries no signature", qc.Round())
	}
	if c.participantPower(sig) < c.config.QuorumPower() {
		return ErrNotAQuorum
	}
	return c.Verify(sig, qc.SignedBytes())
}

// CreateTimeoutCert combines timeout messages for the same round into a
// timeout certificate.
func (c *crypto) CreateTimeoutCert(round libra.Round, timeouts []libra.TimeoutMsg) (cert libra.TimeoutCert, err error) {
	// round 0 is always valid.
	if round == 0 {
		return libra.NewTimeoutCert(nil, 0), nil
	}
	sigs := make([]libra.QuorumSignature, 0, len(timeouts))
	for _, timeout := range timeouts {
		if timeout.Round != round {
			err = multierr.Append(err, ErrRoundMismatch)
			continue
		}
		sigs = append(sigs, timeout.RoundSignature)
	}

	sig, cerr := c.combine(sigs)
	if cerr != nil {
		return libra.TimeoutCert{}, multierr.Combine(cerr, err)
	}
	if power := c.participantPower(sig); power < c.config.QuorumPower() {
		return libra.TimeoutCert{}, multierr.Combine(ErrNotAQuorum, err)
	}
	return libra.NewTimeoutCert(sig, round), nil
}

// VerifyTimeoutCert verifies a timeout certificate.
func (c *crypto) VerifyTimeoutCert(tc libra.TimeoutCert) error {
	// round 0 TC is always valid.
	if tc.Round() == 0 {
		return nil
	}
	sig := tc.Signature()
	if sig == nil {
		return fmt.Errorf("TC for round %d carries no signature", tc.Round())
	}
	if c.participantPower(sig) < c.config.QuorumPower() {
		return ErrNotAQuorum
	}
	return c.Verify(sig, tc.Round().ToBytes())
}

// combine merges signatures. A single signature may already carry quorum
// power in a weighted validator set, so it is passed through unchanged.
func (c *crypto) combine(sigs []libra.QuorumSignature) (libra.QuorumSignature, error) {
	switch len(sigs) {
	case 0:
		return nil, ErrNotAQuorum
	case 1:
		return sigs[0], nil
	default:
		return c.Combine(sigs...)
	}
}

// participantPower sums the voting power of the signature's participants.
func (c *crypto) participantPower(sig libra.QuorumSignature) (power uint64) {
	sig.Participants().ForEach(func(id libra.ID) {
		if validator, ok := c.config.Validator(id); ok {
			power += validator.VotingPower()
		}
	})
	return power
}
