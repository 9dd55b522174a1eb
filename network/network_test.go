package network_test

import (
	"context"
	"testing"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/internal/testutil"
	"github.com/kengeo/libra/network"
)

type cluster struct {
	net *network.Network
	eps map[libra.ID]*network.Endpoint
	set []*testutil.Essentials
}

func newCluster(t *testing.T, n int) *cluster {
	t.Helper()
	c := &cluster{
		net: network.NewNetwork(),
		eps: make(map[libra.ID]*network.Endpoint),
	}
	c.set = testutil.CreateEssentialsSet(t, n, crypto.NameECDSA, func(id libra.ID) []any {
		ep := c.net.Endpoint()
		c.eps[id] = ep
		return []any{ep}
	})
	return c
}

// received drains the event loop of the given validator and returns the
// messages of the same type as want that were delivered to it.
func received(c *cluster, id libra.ID, handle func(el *testutil.Essentials, record func(any))) []any {
	var msgs []any
	e := c.set[id-1]
	handle(e, func(event any) { msgs = append(msgs, event) })
	for e.EventLoop.Tick(context.Background()) {
	}
	return msgs
}

func recordVotes(e *testutil.Essentials, record func(any)) {
	e.EventLoop.RegisterHandler(libra.VoteMsg{}, record)
}

func recordProposals(e *testutil.Essentials, record func(any)) {
	e.EventLoop.RegisterHandler(libra.ProposalMsg{}, record)
}

func TestVoteIsDelivered(t *testing.T) {
	c := newCluster(t, 3)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	vote := testutil.CreateVote(t, block, libra.LedgerInfo{}, c.set[0].Auth)

	if err := c.eps[1].Vote(2, vote); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	msgs := received(c, 2, recordVotes)
	if len(msgs) != 1 {
		t.Fatalf("validator 2 received %d votes, want 1", len(msgs))
	}
	msg := msgs[0].(libra.VoteMsg)
	if msg.ID != 1 || msg.Vote.BlockID() != block.Hash() {
		t.Error("the delivered vote does not match the sent vote")
	}
}

func TestVoteToUnknownValidatorFails(t *testing.T) {
	c := newCluster(t, 3)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	vote := testutil.CreateVote(t, block, libra.LedgerInfo{}, c.set[0].Auth)

	if err := c.eps[1].Vote(10, vote); err == nil {
		t.Error("sending to an unknown validator did not fail")
	}
}

func TestProposeBroadcastsToOthers(t *testing.T) {
	c := newCluster(t, 3)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	proposal := libra.ProposalMsg{ID: 1, Block: block}

	c.eps[1].Propose(proposal)

	for _, id := range []libra.ID{2, 3} {
		if msgs := received(c, id, recordProposals); len(msgs) != 1 {
			t.Errorf("validator %d received %d proposals, want 1", id, len(msgs))
		}
	}
	if msgs := received(c, 1, recordProposals); len(msgs) != 0 {
		t.Error("the sender received its own broadcast")
	}
}

func TestDropFuncPartitionsNetwork(t *testing.T) {
	c := newCluster(t, 3)
	c.net.SetDropFunc(func(from, to libra.ID, message any) bool {
		return to == 2
	})

	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	c.eps[1].Propose(libra.ProposalMsg{ID: 1, Block: block})

	if msgs := received(c, 2, recordProposals); len(msgs) != 0 {
		t.Error("a message crossed the partition")
	}
	if msgs := received(c, 3, recordProposals); len(msgs) != 1 {
		t.Error("the partition dropped an unrelated message")
	}

	c.net.SetDropFunc(nil)
	c.eps[1].Propose(libra.ProposalMsg{ID: 1, Block: block})
	if msgs := received(c, 2, recordProposals); len(msgs) != 1 {
		t.Error("messages are still dropped after the partition healed")
	}
}

func TestRequestBlock(t *testing.T) {
	c := newCluster(t, 3)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	if _, err := c.set[1].Tree.Insert(block); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := c.eps[1].RequestBlock(context.Background(), block.Hash())
	if !ok || got.Hash() != block.Hash() {
		t.Error("block stored at validator 2 was not found")
	}

	if _, ok := c.eps[1].RequestBlock(context.Background(), libra.Hash{1}); ok {
		t.Error("an unknown block was found")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := c.eps[1].RequestBlock(ctx, block.Hash()); ok {
		t.Error("a cancelled request returned a block")
	}
}
