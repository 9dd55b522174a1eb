// Package consensus implements the event processor, the state machine that
// receives proposals, votes, and sync info, and drives the block tree, the
// voting machine, and the safety rules.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/eventloop"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
	"github.com/kengeo/libra/safety"
	"github.com/kengeo/libra/votingmachine"
)

// State describes what the event processor is waiting for.
type State int

const (
	// Idle means no proposal for the current round has been handled yet.
	Idle State = iota
	// AwaitingQC means a vote was cast and the processor is waiting for the
	// round's certificate.
	AwaitingQC
	// Syncing means the processor is fetching missing ancestor blocks from
	// the other replicas.
	Syncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingQC:
		return "AwaitingQC"
	case Syncing:
		return "Syncing"
	}
	return "Unknown"
}

// EventProcessor serializes all consensus state transitions. It must only be
// invoked from the event loop.
type EventProcessor struct {
	acceptor       modules.Acceptor
	commandQueue   modules.CommandQueue
	config         modules.Configuration
	auth           modules.Crypto
	eventLoop      *eventloop.EventLoop
	executor       modules.StateComputer
	leaderRotation modules.LeaderRotation
	sender         modules.Sender
	synchronizer   modules.Synchronizer
	tree           *blocktree.BlockTree
	votes          *votingmachine.VotingMachine
	rules          *safety.Rules
	logger         logging.Logger
	opts           *modules.Options

	state State
}

// New returns an idle event processor.
func New() *EventProcessor {
	return &EventProcessor{state: Idle}
}

// InitModule gives the processor access to the other modules and registers
// its event handlers.
func (ep *EventProcessor) InitModule(mods *modules.Core) {
	mods.Get(
		&ep.acceptor,
		&ep.commandQueue,
		&ep.config,
		&ep.auth,
		&ep.eventLoop,
		&ep.executor,
		&ep.leaderRotation,
		&ep.sender,
		&ep.synchronizer,
		&ep.tree,
		&ep.votes,
		&ep.rules,
		&ep.logger,
		&ep.opts,
	)

	ep.eventLoop.RegisterHandler(libra.ProposalMsg{}, func(event any) {
		ep.OnProposal(event.(libra.ProposalMsg))
	})

	ep.eventLoop.RegisterHandler(libra.VoteMsg{}, func(event any) {
		ep.OnVote(event.(libra.VoteMsg))
	})
}

// State returns the processor's current state.
func (ep *EventProcessor) State() State {
	return ep.state
}

// Propose builds a block on top of the highest QC and broadcasts it.
func (ep *EventProcessor) Propose(syncInfo libra.SyncInfo) {
	qc, ok := syncInfo.QC()
	if !ok {
		qc = ep.tree.HighQC()
	}

	// tell the acceptor that the previous proposal succeeded
	if parent, ok := ep.tree.Get(qc.BlockID()); ok {
		ep.acceptor.Proposed(parent.Block().Command())
	} else {
		ep.logger.Errorf("Propose: could not find block for QC: %s", qc)
	}

	cmd, ok := ep.commandQueue.Get(ep.synchronizer.RoundContext())
	if !ok {
		ep.logger.Debugf("Propose[round=%d]: no command", ep.synchronizer.Round())
		return
	}

	block := libra.NewBlock(qc, cmd, ep.synchronizer.Round(), time.Now().UnixMicro(), ep.opts.ID())
	signed, err := ep.auth.SignBlock(block)
	if err != nil {
		ep.logger.Errorf("Propose: failed to sign block: %v", err)
		return
	}

	proposal := libra.ProposalMsg{ID: ep.opts.ID(), Block: signed, SyncInfo: syncInfo}
	ep.sender.Propose(proposal)
	// self vote
	ep.OnProposal(proposal)
}

// OnProposal handles an incoming proposal. If the proposal is safe and
// accepted, a vote is sent to the next round's leader.
func (ep *EventProcessor) OnProposal(proposal libra.ProposalMsg) {
	block := proposal.Block
	round := block.Round()
	ep.logger.Debugf("OnProposal[round=%d]: %.8s", round, block.Hash())

	if proposal.ID != ep.leaderRotation.GetLeader(round) || block.Author() != proposal.ID {
		ep.logger.Infof("OnProposal[round=%d]: block was not proposed by the round's leader", round)
		return
	}

	if err := ep.auth.VerifyBlock(block); err != nil {
		ep.logger.Infof("OnProposal[round=%d]: invalid block signature: %v", round, err)
		return
	}

	if err := ep.auth.VerifyQuorumCert(block.QuorumCert()); err != nil {
		ep.logger.Infof("OnProposal[round=%d]: invalid QC: %v", round, err)
		return
	}

	// The sender may be ahead of us. Reconcile with its certificates and
	// fetch any ancestors we are missing before attempting to vote.
	if err := ep.ProcessSyncInfo(proposal.SyncInfo); err != nil {
		ep.logger.Infof("OnProposal[round=%d]: failed to reconcile sync info: %v", round, err)
	}
	if err := ep.ensureAncestry(block); err != nil {
		ep.logger.Infof("OnProposal[round=%d]: missing ancestry: %v", round, err)
		return
	}

	// A valid proposal carries a valid QC, so the round can advance even if
	// we end up not voting.
	defer ep.synchronizer.AdvanceRound(libra.NewSyncInfo().WithQC(block.QuorumCert()))

	eb, err := ep.tree.Insert(block)
	if err != nil {
		ep.logger.Infof("OnProposal[round=%d]: rejected: %v", round, err)
		return
	}

	if parent, ok := ep.tree.Get(block.Parent()); ok {
		ep.acceptor.Proposed(parent.Block().Command())
	}
	if !ep.acceptor.Accept(block.Command()) {
		ep.logger.Infof("OnProposal[round=%d]: command rejected", round)
		return
	}

	vote, err := ep.rules.ShouldVote(eb)
	if err != nil {
		if errors.Is(err, safety.ErrExecutionFailed) {
			ep.logger.Errorf("OnProposal[round=%d]: %v", round, err)
		} else {
			ep.logger.Debugf("OnProposal[round=%d]: not voting: %v", round, err)
		}
		ep.state = Idle
		return
	}
	ep.state = AwaitingQC

	leader := ep.leaderRotation.GetLeader(round + 1)
	if leader == ep.opts.ID() {
		ep.eventLoop.AddEvent(libra.VoteMsg{ID: ep.opts.ID(), Vote: vote})
		return
	}
	ep.logger.Debugf("OnProposal[round=%d]: voting for %.8s", round, block.Hash())
	if err := ep.sender.Vote(leader, vote); err != nil {
		ep.logger.Warnf("OnProposal[round=%d]: failed to send vote to replica %d: %v", round, leader, err)
	}
}

// OnVote hands an incoming vote to the voting machine. When a certificate
// forms, the safety rules decide whether a commit follows, and the round
// advances.
func (ep *EventProcessor) OnVote(voteMsg libra.VoteMsg) {
	vote := voteMsg.Vote
	ep.logger.Debugf("OnVote[round=%d]: from replica %d for %.8s", vote.Round(), vote.Author(), vote.BlockID())

	if _, ok := ep.tree.Get(vote.BlockID()); !ok {
		// The vote may just be early. Hold it back until the next proposal
		// arrives, once.
		if !voteMsg.Deferred {
			voteMsg.Deferred = true
			ep.eventLoop.DelayUntil(libra.ProposalMsg{}, voteMsg)
		} else {
			ep.logger.Debugf("OnVote[round=%d]: dropping vote for unknown block %.8s", vote.Round(), vote.BlockID())
		}
		return
	}

	receipt := ep.votes.AddVote(vote)
	if receipt.Status != votingmachine.QCFormed {
		ep.logger.Debugf("OnVote[round=%d]: %s (power=%d)", vote.Round(), receipt.Status, receipt.Power)
		return
	}

	qc := *receipt.QC
	if err := ep.tree.InsertQC(qc); err != nil {
		ep.logger.Errorf("OnVote[round=%d]: failed to record QC: %v", vote.Round(), err)
		return
	}
	if err := ep.rules.ObserveQC(qc); err != nil {
		ep.logger.Errorf("OnVote[round=%d]: failed to update lock: %v", vote.Round(), err)
		return
	}

	if ledgerInfo, ok := ep.rules.ShouldCommit(qc); ok {
		ep.commit(ledgerInfo)
	}

	ep.state = Idle
	ep.synchronizer.AdvanceRound(libra.NewSyncInfo().WithQC(qc))
}

// ProcessSyncInfo verifies and adopts the certificates carried by syncInfo.
// Blocks certified by an unknown QC are fetched from the other replicas
// before the QC is recorded.
func (ep *EventProcessor) ProcessSyncInfo(syncInfo libra.SyncInfo) error {
	if qc, ok := syncInfo.QC(); ok {
		if err := ep.adoptQC(qc); err != nil {
			return err
		}
	}
	if commitQC, ok := syncInfo.CommitQC(); ok {
		if err := ep.adoptQC(commitQC); err != nil {
			return err
		}
		ledgerInfo := commitQC.LedgerInfo()
		if ledgerInfo.BlockID() != (libra.Hash{}) && ledgerInfo.Round() > ep.tree.Root().Round() {
			if _, ok := ep.tree.Get(ledgerInfo.BlockID()); ok {
				ep.commit(ledgerInfo)
			}
		}
	}
	return nil
}

// adoptQC verifies a certificate, fetches its block if missing, and records
// it in the tree and the safety rules.
func (ep *EventProcessor) adoptQC(qc libra.QuorumCert) error {
	if qc.Round() <= ep.tree.Root().Round() {
		return nil
	}
	if err := ep.auth.VerifyQuorumCert(qc); err != nil {
		return fmt.Errorf("invalid QC for round %d: %w", qc.Round(), err)
	}
	if _, ok := ep.tree.Get(qc.BlockID()); !ok {
		block, ok := ep.fetchBlock(qc.BlockID())
		if !ok {
			return fmt.Errorf("could not fetch block %.8s certified at round %d", qc.BlockID(), qc.Round())
		}
		if err := ep.ensureAncestry(block); err != nil {
			return err
		}
		if _, err := ep.tree.Insert(block); err != nil {
			return err
		}
	}
	if err := ep.tree.InsertQC(qc); err != nil && !errors.Is(err, blocktree.ErrStaleQC) {
		return err
	}
	return ep.rules.ObserveQC(qc)
}

// ensureAncestry fetches and inserts any missing ancestors of block, oldest
// first, until the block's parent is in the tree.
func (ep *EventProcessor) ensureAncestry(block *libra.Block) error {
	var missing []*libra.Block
	current := block
	for {
		if _, ok := ep.tree.Get(current.Parent()); ok {
			break
		}
		if current.QuorumCert().Round() <= ep.tree.Root().Round() {
			return fmt.Errorf("ancestry of block %.8s does not reach the committed root", block.Hash())
		}
		prev := ep.state
		ep.state = Syncing
		parent, ok := ep.fetchBlock(current.Parent())
		ep.state = prev
		if !ok {
			return fmt.Errorf("could not fetch missing ancestor %.8s", current.Parent())
		}
		missing = append(missing, parent)
		current = parent
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if _, err := ep.tree.Insert(missing[i]); err != nil {
			return err
		}
	}
	return nil
}

// fetchBlock requests a locally missing block from the other replicas.
func (ep *EventProcessor) fetchBlock(id libra.Hash) (*libra.Block, bool) {
	ep.logger.Debugf("fetching block %.8s", id)
	return ep.sender.RequestBlock(ep.synchronizer.RoundContext(), id)
}

// commit finalizes the ledger info's block and all its uncommitted ancestors,
// hands them to the state computer, and prunes the dead branches.
func (ep *EventProcessor) commit(ledgerInfo libra.LedgerInfo) {
	committed, err := ep.tree.Commit(ledgerInfo.BlockID())
	if err != nil {
		ep.logger.Errorf("commit of block %.8s failed: %v", ledgerInfo.BlockID(), err)
		return
	}

	blocks := make([]*libra.Block, 0, len(committed))
	for _, eb := range committed {
		if execErr := eb.ExecError(); execErr != nil {
			// Committing a block that failed execution means determinism
			// between replicas is broken. This replica must resync.
			ep.logger.Panicf("committed block %.8s failed execution: %v", eb.ID(), execErr)
		}
		blocks = append(blocks, eb.Block())
	}

	if err := ep.executor.Commit(blocks, ledgerInfo); err != nil {
		ep.logger.Errorf("state computer failed to commit: %v", err)
		return
	}
	for _, block := range blocks {
		ep.acceptor.Committed(block.Command())
	}

	ep.logger.Debugf("committed %d blocks up to round %d", len(blocks), ledgerInfo.Round())
	ep.eventLoop.AddEvent(libra.CommitEvent{Blocks: blocks, LedgerInfo: ledgerInfo})
}

var (
	_ modules.Consensus = (*EventProcessor)(nil)
	_ modules.Module    = (*EventProcessor)(nil)
)
