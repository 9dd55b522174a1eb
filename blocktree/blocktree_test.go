package blocktree_test

import (
	"errors"
	"testing"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/internal/testutil"
)

func wireTree(t *testing.T) *blocktree.BlockTree {
	t.Helper()
	keys := testutil.GenerateKeys(t, 4, crypto.NameECDSA)
	e := testutil.WireUp(t, 1, testutil.NewValidatorSet(t, keys), keys[0])
	return e.Tree
}

// unsignedQC certifies a block without a signature. The tree does not verify
// signatures, so this is enough to build chains in tests.
func unsignedQC(block *libra.Block) libra.QuorumCert {
	return libra.NewQuorumCert(nil, block.Round(), block.QuorumCert().Round(), block.Hash(), libra.LedgerInfo{})
}

func commitQC(block, target *libra.Block) libra.QuorumCert {
	li := libra.NewLedgerInfo(target.Hash(), target.Round(), libra.Hash{}, target.Timestamp())
	return libra.NewQuorumCert(nil, block.Round(), block.QuorumCert().Round(), block.Hash(), li)
}

// buildChain inserts n blocks in a line on top of parentQC and returns them.
func buildChain(t *testing.T, bt *blocktree.BlockTree, parentQC libra.QuorumCert, rounds ...libra.Round) []*libra.Block {
	t.Helper()
	var blocks []*libra.Block
	qc := parentQC
	for _, round := range rounds {
		block := testutil.NewBlock(t, qc, round, 1)
		if _, err := bt.Insert(block); err != nil {
			t.Fatalf("Insert round %d: %v", round, err)
		}
		blocks = append(blocks, block)
		qc = unsignedQC(block)
	}
	return blocks
}

func TestInsertAndGet(t *testing.T) {
	bt := wireTree(t)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)

	eb, err := bt.Insert(block)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if eb.Result().StateID == (libra.Hash{}) {
		t.Error("expected a speculative execution result")
	}

	got, ok := bt.Get(block.Hash())
	if !ok {
		t.Fatal("Get did not find the inserted block")
	}
	if got.ID() != block.Hash() {
		t.Error("Get returned the wrong block")
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	bt := wireTree(t)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)

	first, err := bt.Insert(block)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	lenBefore := bt.Len()
	linksBefore := bt.ChildLinks()

	second, err := bt.Insert(block)
	if err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	if first != second {
		t.Error("second insert did not return the existing entry")
	}
	if bt.Len() != lenBefore || bt.ChildLinks() != linksBefore {
		t.Error("second insert changed the tree")
	}
}

func TestInsertRejectsUnknownParent(t *testing.T) {
	bt := wireTree(t)
	missing := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	orphan := testutil.NewBlock(t, unsignedQC(missing), 2, 1)

	if _, err := bt.Insert(orphan); !errors.Is(err, blocktree.ErrInvalidProposal) {
		t.Errorf("Insert returned %v, want ErrInvalidProposal", err)
	}
}

func TestInsertRejectsNonIncreasingRound(t *testing.T) {
	bt := wireTree(t)
	blocks := buildChain(t, bt, libra.GenesisQC(), 1, 2)

	bad := testutil.NewBlock(t, unsignedQC(blocks[1]), 2, 1)
	if _, err := bt.Insert(bad); !errors.Is(err, blocktree.ErrInvalidProposal) {
		t.Errorf("Insert returned %v, want ErrInvalidProposal", err)
	}
}

func TestInsertAdvancesHighQC(t *testing.T) {
	bt := wireTree(t)
	blocks := buildChain(t, bt, libra.GenesisQC(), 1, 2, 3)

	if got := bt.HighQC().Round(); got != blocks[1].Round() {
		t.Errorf("HighQC round is %d, want %d", got, blocks[1].Round())
	}
	if got := bt.HighQC().BlockID(); got != blocks[1].Hash() {
		t.Errorf("HighQC certifies the wrong block")
	}
}

func TestInsertQCRejectsUnknownBlock(t *testing.T) {
	bt := wireTree(t)
	unknown := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)

	err := bt.InsertQC(unsignedQC(unknown))
	if !errors.Is(err, blocktree.ErrUnknownBlock) {
		t.Errorf("InsertQC returned %v, want ErrUnknownBlock", err)
	}
}

func TestExtends(t *testing.T) {
	bt := wireTree(t)
	chain := buildChain(t, bt, libra.GenesisQC(), 1, 2, 3)
	fork := testutil.NewBlock(t, unsignedQC(chain[0]), 4, 2)
	if _, err := bt.Insert(fork); err != nil {
		t.Fatalf("Insert fork: %v", err)
	}

	if !bt.Extends(chain[2], chain[0].Hash()) {
		t.Error("block does not extend its grandparent")
	}
	if !bt.Extends(chain[2], chain[2].Hash()) {
		t.Error("block does not extend itself")
	}
	if bt.Extends(fork, chain[1].Hash()) {
		t.Error("fork extends a block on the other branch")
	}
}

func TestPathFromRoot(t *testing.T) {
	bt := wireTree(t)
	chain := buildChain(t, bt, libra.GenesisQC(), 1, 2, 3)

	path := bt.PathFromRoot(chain[2].Hash())
	if len(path) != 3 {
		t.Fatalf("path has %d blocks, want 3", len(path))
	}
	for i, eb := range path {
		if eb.ID() != chain[i].Hash() {
			t.Errorf("path[%d] is the wrong block", i)
		}
	}

	stranger := testutil.NewBlock(t, libra.GenesisQC(), 9, 2)
	if bt.PathFromRoot(stranger.Hash()) != nil {
		t.Error("expected nil path for a block outside the tree")
	}
}

func TestCommitPrunesForks(t *testing.T) {
	bt := wireTree(t)
	chain := buildChain(t, bt, libra.GenesisQC(), 1, 2, 3)
	fork := buildChain(t, bt, unsignedQC(chain[0]), 4, 5)

	committed, err := bt.Commit(chain[1].Hash())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(committed) != 2 {
		t.Fatalf("committed %d blocks, want 2", len(committed))
	}
	if committed[0].ID() != chain[0].Hash() || committed[1].ID() != chain[1].Hash() {
		t.Error("commit path is not oldest first")
	}
	if bt.Root().ID() != chain[1].Hash() {
		t.Error("root was not updated")
	}

	// the other branch is gone, but committed ancestors stay fetchable
	for _, block := range fork {
		if bt.Extends(block, chain[0].Hash()) {
			t.Error("pruned branch is still reachable")
		}
	}
	if _, ok := bt.Get(chain[0].Hash()); !ok {
		t.Error("committed ancestor left the fetch window")
	}
	if _, ok := bt.Get(chain[2].Hash()); !ok {
		t.Error("descendant of the new root was pruned")
	}
}

func TestCommitUnknownBlock(t *testing.T) {
	bt := wireTree(t)
	buildChain(t, bt, libra.GenesisQC(), 1)

	stranger := testutil.NewBlock(t, libra.GenesisQC(), 9, 2)
	if _, err := bt.Commit(stranger.Hash()); !errors.Is(err, blocktree.ErrUnknownBlock) {
		t.Errorf("Commit returned %v, want ErrUnknownBlock", err)
	}
}

func TestPrunedWindowIsBounded(t *testing.T) {
	bt := blocktree.New(2)
	keys := testutil.GenerateKeys(t, 1, crypto.NameECDSA)
	e := testutil.WireUp(t, 1, testutil.NewValidatorSet(t, keys), keys[0], bt)
	if e.Tree != bt {
		t.Fatal("the supplied tree did not replace the default")
	}

	chain := buildChain(t, e.Tree, libra.GenesisQC(), 1, 2, 3, 4, 5)
	if _, err := bt.Commit(chain[4].Hash()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := bt.PrunedLen(); got != 2 {
		t.Errorf("pruned window holds %d blocks, want 2", got)
	}
	if _, ok := bt.Get(chain[3].Hash()); !ok {
		t.Error("most recently committed ancestor was evicted")
	}
	if _, ok := bt.Get(chain[0].Hash()); ok {
		t.Error("oldest committed ancestor was not evicted")
	}
}

func TestHighCommitCertTracksCommitInfo(t *testing.T) {
	bt := wireTree(t)
	chain := buildChain(t, bt, libra.GenesisQC(), 1, 2, 3)

	qc := commitQC(chain[2], chain[0])
	if err := bt.InsertQC(qc); err != nil {
		t.Fatalf("InsertQC: %v", err)
	}
	if got := bt.HighCommitCert().LedgerInfo().BlockID(); got != chain[0].Hash() {
		t.Errorf("HighCommitCert does not carry the committed block")
	}
}
