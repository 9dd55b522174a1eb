package libra

import (
	"bytes"
	"fmt"
)

// ProposalMsg is broadcast when a leader makes a proposal.
type ProposalMsg struct {
	ID       ID       // The ID of the validator who sent the message.
	Block    *Block   // The block that is proposed.
	SyncInfo SyncInfo // The highest QC/TC known to the sender.
}

func (p ProposalMsg) String() string {
	return fmt.Sprintf("ProposalMsg{ ID: %d, %s }", p.ID, p.Block)
}

// VoteMsg is sent to the next leader by validators voting on a proposal.
type VoteMsg struct {
	ID       ID   // The ID of the validator who sent the message.
	Vote     Vote // The vote.
	Deferred bool // Whether processing was deferred until the block arrived.
}

func (v VoteMsg) String() string {
	return fmt.Sprintf("VoteMsg{ ID: %d, %s }", v.ID, v.Vote)
}

// TimeoutMsg is broadcast whenever a validator has a local round timeout.
type TimeoutMsg struct {
	ID             ID              // The ID of the validator who sent the message.
	Round          Round           // The round that timed out.
	RoundSignature QuorumSignature // A signature of the round.
	SyncInfo       SyncInfo        // The highest QC/TC known to the sender.
}

// ToBytes returns a byte form of the timeout message.
func (timeout TimeoutMsg) ToBytes() []byte {
	var b bytes.Buffer
	_, _ = b.Write(timeout.ID.ToBytes())
	_, _ = b.Write(timeout.Round.ToBytes())
	if qc, ok := timeout.SyncInfo.QC(); ok {
		_, _ = b.Write(qc.ToBytes())
	}
	return b.Bytes()
}

func (timeout TimeoutMsg) String() string {
	return fmt.Sprintf("TimeoutMsg{ ID: %d, round: %d, SyncInfo: %v }", timeout.ID, timeout.Round, timeout.SyncInfo)
}

// NewRoundMsg is sent to the leader whenever a validator decides to advance
// to the next round. It carries the sender's highest QC/TC so that a lagging
// leader can catch up.
type NewRoundMsg struct {
	ID       ID       // The ID of the validator who sent the message.
	SyncInfo SyncInfo // The highest QC/TC.
}

// CommitEvent is raised on the event loop whenever a 3-chain commits,
// carrying the newly committed blocks in order (oldest first) and the
// ledger info that finalizes them.
type CommitEvent struct {
	Blocks     []*Block
	LedgerInfo LedgerInfo
}
