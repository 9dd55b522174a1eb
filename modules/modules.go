package modules

import (
	"context"
	"time"

	"github.com/kengeo/libra"
)

//go:generate mockgen -destination=../internal/mocks/modules_mock.go -package=mocks . Validator,Configuration,LeaderRotation,StateComputer,Storage,Sender,CommandQueue,Acceptor,Consensus

// Validator holds the identity of one member of the validator set.
type Validator interface {
	// ID returns the validator's id.
	ID() libra.ID
	// PublicKey returns the validator's public key.
	PublicKey() libra.PublicKey
	// VotingPower returns the validator's voting weight.
	VotingPower() uint64
}

// Configuration holds information about the validator set.
type Configuration interface {
	// Validator returns the validator with the given id.
	Validator(id libra.ID) (Validator, bool)
	// Validators calls f for each validator in the set.
	Validators(f func(Validator))
	// Len returns the number of validators in the set.
	Len() int
	// TotalPower returns the combined voting power of all validators.
	TotalPower() uint64
	// QuorumPower returns the minimum accumulated voting power that forms a quorum.
	QuorumPower() uint64
}

// LeaderRotation implements a leader rotation scheme.
// It must be a pure function of the round number and the validator set so
// that all validators agree on the leader without communication.
type LeaderRotation interface {
	// GetLeader returns the id of the leader in the given round.
	GetLeader(libra.Round) libra.ID
}

// StateComputer executes block payloads. Compute is deterministic and
// side-effect free; nothing reaches durable state until Commit is called.
type StateComputer interface {
	// Compute executes the block's payload on top of the parent state
	// and returns the resulting state id.
	Compute(parentStateID libra.Hash, block *libra.Block) (libra.StateComputeResult, error)
	// Commit finalizes the given blocks, oldest first.
	Commit(blocks []*libra.Block, ledgerInfo libra.LedgerInfo) error
}

// Storage is the durable key-value store used for crash recovery.
type Storage interface {
	// SaveTree durably records the given blocks and quorum certificates.
	SaveTree(blocks []*libra.Block, qcs []libra.QuorumCert) error
	// PruneTree removes the blocks with the given ids from durable storage.
	PruneTree(blockIDs []libra.Hash) error
	// SaveLivenessData durably records the consensus liveness state.
	// It must be called before a vote derived from that state is released.
	SaveLivenessData(data libra.PersistentLivenessData) error
	// Load restores the saved state. It is used only at startup.
	Load() (libra.RecoveryData, error)
}

// Sender handles the network layer of the consensus protocol by methods for sending specific messages.
type Sender interface {
	// Propose broadcasts a proposal to the validators.
	Propose(proposal libra.ProposalMsg)
	// Vote sends a vote message to a validator. Returns an error if the validator was not found.
	Vote(id libra.ID, vote libra.Vote) error
	// Timeout broadcasts a timeout message to the validators.
	Timeout(msg libra.TimeoutMsg)
	// NewRound sends a new round message to a validator. Returns an error if the validator was not found.
	NewRound(id libra.ID, msg libra.SyncInfo) error
	// RequestBlock asks the other validators for a locally missing block.
	RequestBlock(ctx context.Context, id libra.Hash) (*libra.Block, bool)
}

// CommandQueue is the interface to the mempool: it supplies the pending
// commands used to build proposals.
type CommandQueue interface {
	// Get returns the next command to be proposed.
	// It may run until the context is cancelled.
	// If no command is available, the second return value should be false.
	Get(ctx context.Context) (libra.Command, bool)
}

// Acceptor lets the mempool decide whether a command should be proposed,
// and learn about the fate of commands it handed out.
type Acceptor interface {
	// Accept returns true if the command can be accepted.
	Accept(libra.Command) bool
	// Proposed tells the acceptor that the propose phase for the given command succeeded.
	Proposed(libra.Command)
	// Committed tells the acceptor that the given command was finalized.
	Committed(libra.Command)
}

// Consensus processes proposals and votes.
// The interface exists so that the pacemaker can call back into the event
// processor without an import cycle.
type Consensus interface {
	// Propose builds a proposal for the current round and broadcasts it.
	Propose(syncInfo libra.SyncInfo)
	// ProcessSyncInfo verifies and adopts the certificates carried by
	// syncInfo, fetching missing ancestor blocks if necessary.
	ProcessSyncInfo(syncInfo libra.SyncInfo) error
}

// Synchronizer is the pacemaker: it tracks the current round and drives
// round advancement through timeouts and certificates.
type Synchronizer interface {
	// Round returns the current round.
	Round() libra.Round
	// RoundContext returns a context that is cancelled when the current
	// round ends.
	RoundContext() context.Context
	// SyncInfo returns the highest certificates known to this replica.
	SyncInfo() libra.SyncInfo
	// AdvanceRound attempts to advance to the round following the highest
	// certificate in syncInfo.
	AdvanceRound(syncInfo libra.SyncInfo)
	// Start starts the round timers. The pacemaker stops when ctx is
	// cancelled.
	Start(ctx context.Context)
}

// ViewDuration determines the duration of a round.
// The pacemaker uses this interface to set its timeouts.
type ViewDuration interface {
	// Duration returns the duration that the next round should last.
	Duration() time.Duration
	// ViewStarted is called by the pacemaker when starting a new round.
	ViewStarted()
	// ViewSucceeded is called by the pacemaker when a round ended successfully.
	ViewSucceeded()
	// ViewTimeout is called by the pacemaker when a round timed out.
	ViewTimeout()
}
