// Package votingmachine collects votes and assembles quorum certificates once
// the voting power behind a block reaches the quorum threshold.
package votingmachine

import (
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
)

// Status describes the outcome of adding a vote.
type Status int

const (
	// Pending means the vote was counted but no quorum has formed yet.
	Pending Status = iota
	// QCFormed means this vote completed a quorum certificate.
	QCFormed
	// DuplicateVote means the author already voted for this block.
	DuplicateVote
	// EquivocateVote means the author voted for a different block in the
	// same round. The vote is rejected.
	EquivocateVote
	// StaleVote means the vote's round is at or below the last round for
	// which a QC was already formed.
	StaleVote
	// InvalidSignature means the vote's signature did not verify against
	// the author's public key.
	InvalidSignature
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case QCFormed:
		return "QCFormed"
	case DuplicateVote:
		return "DuplicateVote"
	case EquivocateVote:
		return "EquivocateVote"
	case StaleVote:
		return "StaleVote"
	case InvalidSignature:
		return "InvalidSignature"
	}
	return "Unknown"
}

// Receipt reports what a vote contributed. QC is only set when Status is
// QCFormed.
type Receipt struct {
	Status Status
	Power  uint64
	QC     *libra.QuorumCert
}

// VotingMachine aggregates pending votes per block and produces a certificate
// when the accumulated voting power passes the quorum threshold. Votes are
// assumed to be signature-verified by the caller.
type VotingMachine struct {
	auth   modules.Crypto
	config modules.Configuration
	logger logging.Logger

	mut            sync.Mutex
	verifiedVotes  map[libra.Hash][]libra.Vote
	authorBlocks   map[libra.ID]map[libra.Round]libra.Hash
	highestQCRound libra.Round
}

// New returns an empty voting machine.
func New() *VotingMachine {
	return &VotingMachine{
		verifiedVotes: make(map[libra.Hash][]libra.Vote),
		authorBlocks:  make(map[libra.ID]map[libra.Round]libra.Hash),
	}
}

// InitModule gives the voting machine access to the other modules.
func (vm *VotingMachine) InitModule(mods *modules.Core) {
	mods.Get(
		&vm.auth,
		&vm.config,
		&vm.logger,
	)
}

// AddVote verifies a vote and counts it towards its block. When the voting
// power behind the block reaches the quorum threshold, the pending votes are
// combined into a certificate and returned in the receipt.
//
// An author's second vote for the same block in the same round is ignored,
// and a vote for a different block in the same round is rejected as
// equivocation. Neither is ever double-counted.
func (vm *VotingMachine) AddVote(vote libra.Vote) Receipt {
	vm.mut.Lock()
	defer vm.mut.Unlock()

	if vote.Round() <= vm.highestQCRound {
		return Receipt{Status: StaleVote}
	}

	if err := vm.auth.VerifyVote(vote); err != nil {
		vm.logger.Infof("rejecting vote from replica %d: %v", vote.Author(), err)
		return Receipt{Status: InvalidSignature}
	}

	rounds, ok := vm.authorBlocks[vote.Author()]
	if !ok {
		rounds = make(map[libra.Round]libra.Hash)
		vm.authorBlocks[vote.Author()] = rounds
	}
	if votedFor, ok := rounds[vote.Round()]; ok {
		if votedFor == vote.BlockID() {
			return Receipt{Status: DuplicateVote, Power: vm.power(vote.BlockID())}
		}
		vm.logger.Warnf("equivocation: replica %d voted for both %.8s and %.8s in round %d",
			vote.Author(), votedFor, vote.BlockID(), vote.Round())
		return Receipt{Status: EquivocateVote}
	}
	rounds[vote.Round()] = vote.BlockID()

	votes := append(vm.verifiedVotes[vote.BlockID()], vote)
	vm.verifiedVotes[vote.BlockID()] = votes

	power := vm.power(vote.BlockID())
	if power < vm.config.QuorumPower() {
		return Receipt{Status: Pending, Power: power}
	}

	qc, err := vm.auth.CreateQuorumCert(votes)
	if err != nil {
		vm.logger.Errorf("failed to assemble QC for block %.8s: %v", vote.BlockID(), err)
		return Receipt{Status: Pending, Power: power}
	}

	delete(vm.verifiedVotes, vote.BlockID())
	vm.highestQCRound = vote.Round()
	vm.gc()
	vm.logger.Debugf("assembled QC for block %.8s at round %d with power %d", vote.BlockID(), vote.Round(), power)
	return Receipt{Status: QCFormed, Power: power, QC: &qc}
}

// power sums the voting power behind the pending votes for a block. Unknown
// authors contribute nothing.
func (vm *VotingMachine) power(blockID libra.Hash) (power uint64) {
	for _, vote := range vm.verifiedVotes[blockID] {
		if validator, ok := vm.config.Validator(vote.Author()); ok {
			power += validator.VotingPower()
		}
	}
	return power
}

// gc drops pending votes and author records at or below the highest QC round.
func (vm *VotingMachine) gc() {
	for blockID, votes := range vm.verifiedVotes {
		if len(votes) > 0 && votes[0].Round() <= vm.highestQCRound {
			delete(vm.verifiedVotes, blockID)
		}
	}
	for author, rounds := range vm.authorBlocks {
		for round := range rounds {
			if round <= vm.highestQCRound {
				delete(rounds, round)
			}
		}
		if len(rounds) == 0 {
			delete(vm.authorBlocks, author)
		}
	}
}

var _ modules.Module = (*VotingMachine)(nil)
