// Package safety implements the voting and commit rules. It is the only
// component allowed to authorize a vote or derive a commit, and its state is
// persisted before any vote leaves the replica.
package safety

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
)

var (
	// ErrOldRound is returned when this replica already voted in a round at
	// or above the proposal's round.
	ErrOldRound = errors.New("already voted in this round")

	// ErrLockViolation is returned when a proposal neither extends the
	// locked block nor carries a QC proving the network moved past the lock.
	ErrLockViolation = errors.New("proposal conflicts with the locked branch")

	// ErrExecutionFailed is returned when the block about to be voted on or
	// committed has a cached speculative execution failure. This puts
	// determinism between replicas in question and requires a resync.
	ErrExecutionFailed = errors.New("speculative execution failed")
)

// Rules holds the persistent safety state and decides whether the local
// replica may vote for a proposal or commit a certified block.
//
// The lock is the block certified by the highest QC this replica has seen.
// Both the lock and the last voted round are written to storage before a
// decision takes effect, so a crash between deciding and sending can never
// lead to a double vote.
type Rules struct {
	auth    modules.Crypto
	storage modules.Storage
	tree    *blocktree.BlockTree
	logger  logging.Logger

	mut            sync.Mutex
	lastVotedRound libra.Round
	lockedQC       libra.QuorumCert
	highestTC      *libra.TimeoutCert
}

// New returns safety rules with genesis state.
func New() *Rules {
	return &Rules{
		lockedQC: libra.GenesisQC(),
	}
}

// InitModule gives the rules access to the other modules and reloads the
// persisted safety state.
func (s *Rules) InitModule(mods *modules.Core) {
	mods.Get(
		&s.auth,
		&s.storage,
		&s.tree,
		&s.logger,
	)
	recovery, err := s.storage.Load()
	if err != nil {
		s.logger.Errorf("failed to load safety state: %v", err)
		return
	}
	data := recovery.LivenessData
	s.lastVotedRound = data.LastVotedRound
	if data.HighestQC != nil {
		s.lockedQC = *data.HighestQC
	}
	s.highestTC = data.HighestTC
}

// ShouldVote decides whether the local replica may vote for the given block.
// On success it records and persists the new last voted round, then returns
// the signed vote. The vote's ledger info names the block that forming a QC
// for this vote would commit, or is empty if the 3-chain would not be
// contiguous.
func (s *Rules) ShouldVote(eb *blocktree.ExecutedBlock) (libra.Vote, error) {
	if err := eb.ExecError(); err != nil {
		return libra.Vote{}, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	block := eb.Block()
	if block.Round() <= s.lastVotedRound {
		return libra.Vote{}, fmt.Errorf("%w: proposal round %d, last voted round %d", ErrOldRound, block.Round(), s.lastVotedRound)
	}

	qc := block.QuorumCert()
	if qc.Round() <= s.lockedQC.Round() && !s.tree.Extends(block, s.lockedQC.BlockID()) {
		return libra.Vote{}, fmt.Errorf("%w: locked on %.8s at round %d", ErrLockViolation, s.lockedQC.BlockID(), s.lockedQC.Round())
	}

	ledgerInfo := s.commitTarget(eb)

	s.lastVotedRound = block.Round()
	if err := s.persist(); err != nil {
		// Fail closed: the in-memory round stays advanced, but no vote may
		// leave this replica without a durable record of it.
		return libra.Vote{}, fmt.Errorf("aborting vote for round %d: %w", block.Round(), err)
	}

	return s.auth.CreateVote(block, ledgerInfo)
}

// ShouldCommit applies the 3-chain rule to a newly certified block. If the
// block, its parent, and its grandparent are certified at contiguous rounds,
// the grandparent's ledger info is returned. A round gap anywhere in the
// chain means no commit can be derived yet.
func (s *Rules) ShouldCommit(qc libra.QuorumCert) (libra.LedgerInfo, bool) {
	block, ok := s.tree.Get(qc.BlockID())
	if !ok {
		return libra.LedgerInfo{}, false
	}
	parent, ok := s.tree.Get(block.Block().Parent())
	if !ok {
		return libra.LedgerInfo{}, false
	}
	grand, ok := s.tree.Get(parent.Block().Parent())
	if !ok {
		return libra.LedgerInfo{}, false
	}
	if block.Round() != parent.Round()+1 || parent.Round() != grand.Round()+1 {
		return libra.LedgerInfo{}, false
	}
	if grand.Round() <= s.tree.Root().Round() {
		return libra.LedgerInfo{}, false
	}
	return libra.NewLedgerInfo(grand.ID(), grand.Round(), grand.Result().StateID, grand.Block().Timestamp()), true
}

// commitTarget computes the ledger info a vote for block should carry: the
// grandparent, if certifying block would complete a contiguous 3-chain.
func (s *Rules) commitTarget(eb *blocktree.ExecutedBlock) libra.LedgerInfo {
	block := eb.Block()
	qc := block.QuorumCert()
	if block.Round() != qc.Round()+1 || qc.Round() != qc.ParentRound()+1 {
		return libra.LedgerInfo{}
	}
	parent, ok := s.tree.Get(block.Parent())
	if !ok {
		return libra.LedgerInfo{}
	}
	grand, ok := s.tree.Get(parent.Block().Parent())
	if !ok {
		return libra.LedgerInfo{}
	}
	return libra.NewLedgerInfo(grand.ID(), grand.Round(), grand.Result().StateID, grand.Block().Timestamp())
}

// ObserveQC advances the lock when qc outranks the current one. The new lock
// is persisted before it takes effect.
func (s *Rules) ObserveQC(qc libra.QuorumCert) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if qc.Round() <= s.lockedQC.Round() {
		return nil
	}
	previous := s.lockedQC
	s.lockedQC = qc
	if err := s.persist(); err != nil {
		s.lockedQC = previous
		return err
	}
	s.logger.Debugf("locked on block %.8s at round %d", qc.BlockID(), qc.Round())
	return nil
}

// ObserveTC records the highest timeout certificate seen so far.
func (s *Rules) ObserveTC(tc libra.TimeoutCert) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.highestTC != nil && tc.Round() <= s.highestTC.Round() {
		return nil
	}
	previous := s.highestTC
	s.highestTC = &tc
	if err := s.persist(); err != nil {
		s.highestTC = previous
		return err
	}
	return nil
}

// LastVotedRound returns the highest round this replica has voted in.
func (s *Rules) LastVotedRound() libra.Round {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.lastVotedRound
}

// LockedQC returns the certificate this replica is locked on.
func (s *Rules) LockedQC() libra.QuorumCert {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.lockedQC
}

// HighestTC returns the highest timeout certificate seen, if any.
func (s *Rules) HighestTC() (libra.TimeoutCert, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.highestTC == nil {
		return libra.TimeoutCert{}, false
	}
	return *s.highestTC, true
}

// persist writes the safety state to storage. Callers hold the mutex.
func (s *Rules) persist() error {
	qc := s.lockedQC
	return s.storage.SaveLivenessData(libra.PersistentLivenessData{
		LastVotedRound: s.lastVotedRound,
		HighestQC:      &qc,
		HighestTC:      s.highestTC,
	})
}

var _ modules.Module = (*Rules)(nil)
