package safety_test

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/internal/mocks"
	"github.com/kengeo/libra/internal/testutil"
	"github.com/kengeo/libra/safety"
	"github.com/kengeo/libra/storage"
)

func wireUp(t *testing.T) (*safety.Rules, *testutil.Essentials) {
	t.Helper()
	rules := safety.New()
	keys := testutil.GenerateKeys(t, 4, crypto.NameECDSA)
	e := testutil.WireUp(t, 1, testutil.NewValidatorSet(t, keys), keys[0], rules)
	return rules, e
}

func unsignedQC(block *libra.Block) libra.QuorumCert {
	return libra.NewQuorumCert(nil, block.Round(), block.QuorumCert().Round(), block.Hash(), libra.LedgerInfo{})
}

// insertChain inserts one block per round and returns the executed blocks.
func insertChain(t *testing.T, tree *blocktree.BlockTree, rounds ...libra.Round) []*blocktree.ExecutedBlock {
	t.Helper()
	var ebs []*blocktree.ExecutedBlock
	qc := libra.GenesisQC()
	for _, round := range rounds {
		block := testutil.NewBlock(t, qc, round, 1)
		eb, err := tree.Insert(block)
		if err != nil {
			t.Fatalf("Insert round %d: %v", round, err)
		}
		ebs = append(ebs, eb)
		qc = unsignedQC(block)
	}
	return ebs
}

func TestVotesAtMostOncePerRound(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 1)

	vote, err := rules.ShouldVote(chain[0])
	if err != nil {
		t.Fatalf("ShouldVote: %v", err)
	}
	if vote.Round() != 1 || vote.Author() != 1 {
		t.Error("vote carries the wrong round or author")
	}

	if _, err := rules.ShouldVote(chain[0]); !errors.Is(err, safety.ErrOldRound) {
		t.Errorf("second vote returned %v, want ErrOldRound", err)
	}
}

func TestNoDoubleVoteAcrossRestart(t *testing.T) {
	keys := testutil.GenerateKeys(t, 4, crypto.NameECDSA)
	vs := testutil.NewValidatorSet(t, keys)
	store := storage.NewMemory()

	rules := safety.New()
	e := testutil.WireUp(t, 1, vs, keys[0], store, rules)
	chain := insertChain(t, e.Tree, 1, 2)
	if _, err := rules.ShouldVote(chain[1]); err != nil {
		t.Fatalf("ShouldVote: %v", err)
	}

	// rebuild the modules around the surviving storage
	restarted := safety.New()
	e2 := testutil.WireUp(t, 1, vs, keys[0], store, restarted)

	if got := restarted.LastVotedRound(); got != 2 {
		t.Fatalf("recovered last voted round %d, want 2", got)
	}
	eb, ok := e2.Tree.Get(chain[1].ID())
	if !ok {
		t.Fatal("voted block did not survive the restart")
	}
	if _, err := restarted.ShouldVote(eb); !errors.Is(err, safety.ErrOldRound) {
		t.Errorf("vote after restart returned %v, want ErrOldRound", err)
	}
}

func TestLockRejectsConflictingBranch(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 1, 2)

	// lock on the block certified at round 2
	lock := unsignedQC(chain[1].Block())
	if err := e.Tree.InsertQC(lock); err != nil {
		t.Fatalf("InsertQC: %v", err)
	}
	if err := rules.ObserveQC(lock); err != nil {
		t.Fatalf("ObserveQC: %v", err)
	}

	// a fork extending round 1 with only a round-1 QC conflicts with the lock
	fork := testutil.NewBlock(t, unsignedQC(chain[0].Block()), 3, 2)
	eb, err := e.Tree.Insert(fork)
	if err != nil {
		t.Fatalf("Insert fork: %v", err)
	}
	if _, err := rules.ShouldVote(eb); !errors.Is(err, safety.ErrLockViolation) {
		t.Errorf("ShouldVote returned %v, want ErrLockViolation", err)
	}
}

func TestHigherQCOverridesLock(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 1, 2)

	lock := unsignedQC(chain[1].Block())
	if err := rules.ObserveQC(lock); err != nil {
		t.Fatalf("ObserveQC: %v", err)
	}

	// a fork branch catches up: its QC at round 3 outranks the lock at round 2
	forkTip := testutil.NewBlock(t, unsignedQC(chain[0].Block()), 3, 2)
	if _, err := e.Tree.Insert(forkTip); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	next := testutil.NewBlock(t, unsignedQC(forkTip), 4, 2)
	eb, err := e.Tree.Insert(next)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := rules.ShouldVote(eb); err != nil {
		t.Errorf("ShouldVote returned %v, want a vote despite the lock", err)
	}
}

func TestVoteCarriesCommitTarget(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 5, 6, 7)

	vote, err := rules.ShouldVote(chain[2])
	if err != nil {
		t.Fatalf("ShouldVote: %v", err)
	}
	li := vote.LedgerInfo()
	if li.BlockID() != chain[0].ID() {
		t.Errorf("commit target is %.8s, want the grandparent %.8s", li.BlockID(), chain[0].ID())
	}
	if li.StateID() != chain[0].Result().StateID {
		t.Error("commit target does not carry the grandparent's state")
	}
}

func TestNoCommitTargetAcrossRoundGap(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 5, 6)

	// rounds 5, 6, 9: the 3-chain is not contiguous
	gap := testutil.NewBlock(t, unsignedQC(chain[1].Block()), 9, 1)
	eb, err := e.Tree.Insert(gap)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	vote, err := rules.ShouldVote(eb)
	if err != nil {
		t.Fatalf("ShouldVote: %v", err)
	}
	if vote.LedgerInfo().BlockID() != (libra.Hash{}) {
		t.Error("vote carries a commit target across a round gap")
	}
}

func TestShouldCommitContiguousChain(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 5, 6, 7)

	li, ok := rules.ShouldCommit(unsignedQC(chain[2].Block()))
	if !ok {
		t.Fatal("expected a commit from the contiguous 3-chain")
	}
	if li.BlockID() != chain[0].ID() || li.Round() != 5 {
		t.Error("commit decides the wrong block")
	}
}

func TestShouldCommitRejectsGap(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 5, 6)
	gap := testutil.NewBlock(t, unsignedQC(chain[1].Block()), 9, 1)
	eb, err := e.Tree.Insert(gap)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, ok := rules.ShouldCommit(unsignedQC(eb.Block())); ok {
		t.Error("commit derived across a round gap")
	}
}

func TestNoCommitFromConflictingBranch(t *testing.T) {
	rules, e := wireUp(t)
	chain := insertChain(t, e.Tree, 1, 2, 3, 4)

	// a conflicting branch forks off round 1 before anything commits
	fork := testutil.NewBlock(t, unsignedQC(chain[0].Block()), 2, 2)
	qc := unsignedQC(fork)
	for _, round := range []libra.Round{3, 4} {
		if _, err := e.Tree.Insert(fork); err != nil {
			t.Fatalf("Insert fork round %d: %v", fork.Round(), err)
		}
		fork = testutil.NewBlock(t, qc, round, 2)
		qc = unsignedQC(fork)
	}
	forkTip, err := e.Tree.Insert(fork)
	if err != nil {
		t.Fatalf("Insert fork tip: %v", err)
	}

	// the 3-chain 2, 3, 4 commits the round-2 block on the main branch
	li, ok := rules.ShouldCommit(unsignedQC(chain[3].Block()))
	if !ok || li.BlockID() != chain[1].ID() {
		t.Fatal("expected the contiguous 3-chain to commit the round-2 block")
	}
	if _, err := e.Tree.Commit(li.BlockID()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// the conflicting branch must never commit once the other side decided
	if _, ok := rules.ShouldCommit(unsignedQC(forkTip.Block())); ok {
		t.Error("derived a commit from the conflicting branch")
	}
	// replaying the deciding QC must not commit below the advanced root
	if _, ok := rules.ShouldCommit(unsignedQC(chain[3].Block())); ok {
		t.Error("derived a commit at or below the root")
	}
	if _, err := e.Tree.Commit(forkTip.ID()); !errors.Is(err, blocktree.ErrUnknownBlock) {
		t.Errorf("Commit on the conflicting branch returned %v, want ErrUnknownBlock", err)
	}
}

func TestFailedPersistBlocksVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStorage(ctrl)
	store.EXPECT().Load().AnyTimes().Return(libra.RecoveryData{}, nil)
	store.EXPECT().SaveTree(gomock.Any(), gomock.Any()).AnyTimes().Return(nil)
	store.EXPECT().SaveLivenessData(gomock.Any()).Return(errors.New("disk full"))

	rules := safety.New()
	keys := testutil.GenerateKeys(t, 4, crypto.NameECDSA)
	e := testutil.WireUp(t, 1, testutil.NewValidatorSet(t, keys), keys[0], store, rules)
	chain := insertChain(t, e.Tree, 1)

	if _, err := rules.ShouldVote(chain[0]); err == nil {
		t.Fatal("expected an error when the liveness data cannot be persisted")
	}
	// fail closed: the round counts as voted even though no vote was produced
	if _, err := rules.ShouldVote(chain[0]); !errors.Is(err, safety.ErrOldRound) {
		t.Errorf("retry returned %v, want ErrOldRound", err)
	}
}

func TestExecutionFailureBlocksVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	executor := mocks.NewMockStateComputer(ctrl)
	executor.EXPECT().Compute(gomock.Any(), gomock.Any()).Return(libra.StateComputeResult{}, errors.New("divergent state"))

	rules := safety.New()
	keys := testutil.GenerateKeys(t, 4, crypto.NameECDSA)
	e := testutil.WireUp(t, 1, testutil.NewValidatorSet(t, keys), keys[0], executor, rules)

	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	eb, err := e.Tree.Insert(block)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := rules.ShouldVote(eb); !errors.Is(err, safety.ErrExecutionFailed) {
		t.Errorf("ShouldVote returned %v, want ErrExecutionFailed", err)
	}
}
