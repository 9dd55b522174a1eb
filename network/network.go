// Package network provides an in-process network that connects the event
// loops of multiple validators running in the same process. It is used by the
// standalone cluster runner and by tests that need several validators talking
// to each other without real sockets.
package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/eventloop"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
)

// DropFunc decides whether a message from one validator to another should be
// dropped. It can be installed on a Network to simulate partitions.
type DropFunc func(from, to libra.ID, message any) bool

// Network routes consensus messages between in-process validators.
// Delivery happens by posting the message on the receiver's event loop, so a
// message sent during one event is processed by the receiver asynchronously.
type Network struct {
	mut       sync.Mutex
	endpoints map[libra.ID]*Endpoint
	dropFn    DropFunc
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{
		endpoints: make(map[libra.ID]*Endpoint),
	}
}

// SetDropFunc installs fn as the network's message filter.
// Passing nil removes the filter.
func (n *Network) SetDropFunc(fn DropFunc) {
	n.mut.Lock()
	defer n.mut.Unlock()
	n.dropFn = fn
}

// Endpoint returns a new Sender module for one validator. The endpoint joins
// the network when its module system is built.
func (n *Network) Endpoint() *Endpoint {
	return &Endpoint{network: n}
}

func (n *Network) shouldDrop(from, to libra.ID, message any) bool {
	n.mut.Lock()
	fn := n.dropFn
	n.mut.Unlock()
	return fn != nil && fn(from, to, message)
}

func (n *Network) deliver(from, to libra.ID, message any) error {
	n.mut.Lock()
	ep, ok := n.endpoints[to]
	n.mut.Unlock()
	if !ok {
		return fmt.Errorf("validator %d not found", to)
	}
	if n.shouldDrop(from, to, message) {
		ep.logger.Debugf("%d -> %d: DROP %T", from, to, message)
		return nil
	}
	ep.eventLoop.AddEvent(message)
	return nil
}

// Endpoint is one validator's connection to the in-process network.
// It implements the Sender interface.
type Endpoint struct {
	network   *Network
	eventLoop *eventloop.EventLoop
	tree      *blocktree.BlockTree
	logger    logging.Logger
	id        libra.ID
}

// InitModule joins the endpoint to the network.
func (ep *Endpoint) InitModule(mods *modules.Core) {
	var opts *modules.Options
	mods.Get(
		&ep.eventLoop,
		&ep.tree,
		&ep.logger,
		&opts,
	)
	ep.id = opts.ID()

	ep.network.mut.Lock()
	ep.network.endpoints[ep.id] = ep
	ep.network.mut.Unlock()
}

func (ep *Endpoint) broadcast(message any) {
	ep.network.mut.Lock()
	ids := make([]libra.ID, 0, len(ep.network.endpoints))
	for id := range ep.network.endpoints {
		if id != ep.id {
			ids = append(ids, id)
		}
	}
	ep.network.mut.Unlock()

	for _, id := range ids {
		if err := ep.network.deliver(ep.id, id, message); err != nil {
			ep.logger.Errorf("broadcast to %d failed: %v", id, err)
		}
	}
}

// Propose broadcasts a proposal to the other validators.
func (ep *Endpoint) Propose(proposal libra.ProposalMsg) {
	ep.broadcast(proposal)
}

// Vote sends a vote message to one validator.
func (ep *Endpoint) Vote(id libra.ID, vote libra.Vote) error {
	return ep.network.deliver(ep.id, id, libra.VoteMsg{ID: ep.id, Vote: vote})
}

// Timeout broadcasts a timeout message to the other validators.
func (ep *Endpoint) Timeout(msg libra.TimeoutMsg) {
	ep.broadcast(msg)
}

// NewRound sends a new round message to one validator.
func (ep *Endpoint) NewRound(id libra.ID, syncInfo libra.SyncInfo) error {
	return ep.network.deliver(ep.id, id, libra.NewRoundMsg{ID: ep.id, SyncInfo: syncInfo})
}

// RequestBlock fetches a missing block from the other validators' trees.
// The lookup also covers their windows of recently committed blocks.
func (ep *Endpoint) RequestBlock(ctx context.Context, id libra.Hash) (*libra.Block, bool) {
	ep.network.mut.Lock()
	peers := make([]*Endpoint, 0, len(ep.network.endpoints))
	for _, peer := range ep.network.endpoints {
		if peer.id != ep.id {
			peers = append(peers, peer)
		}
	}
	ep.network.mut.Unlock()

	for _, peer := range peers {
		if ctx.Err() != nil {
			return nil, false
		}
		if ep.network.shouldDrop(ep.id, peer.id, id) {
			continue
		}
		if eb, ok := peer.tree.Get(id); ok {
			return eb.Block(), true
		}
	}
	return nil, false
}

var (
	_ modules.Sender = (*Endpoint)(nil)
	_ modules.Module = (*Endpoint)(nil)
)
