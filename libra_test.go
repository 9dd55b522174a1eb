package libra_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/consensus"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/internal/mocks"
	"github.com/kengeo/libra/internal/testutil"
	"github.com/kengeo/libra/leaderrotation"
	"github.com/kengeo/libra/network"
	"github.com/kengeo/libra/safety"
	"github.com/kengeo/libra/synchronizer"
	"github.com/kengeo/libra/votingmachine"
)

// TestChainedConsensus runs a full four validator cluster over the in-process
// network and expects every validator to commit at least 5 blocks.
func TestChainedConsensus(t *testing.T) {
	const (
		n           = 4
		wantCommits = 5
	)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	acceptor := mocks.NewMockAcceptor(ctrl)
	acceptor.EXPECT().Accept(gomock.Any()).AnyTimes().Return(true)
	acceptor.EXPECT().Proposed(gomock.Any()).AnyTimes()
	acceptor.EXPECT().Committed(gomock.Any()).AnyTimes()
	queue := mocks.NewMockCommandQueue(ctrl)
	queue.EXPECT().Get(gomock.Any()).AnyTimes().Return(libra.Command("foo"), true)

	net := network.NewNetwork()
	syncers := make(map[libra.ID]*synchronizer.Synchronizer)
	set := testutil.CreateEssentialsSet(t, n, crypto.NameECDSA, func(id libra.ID) []any {
		s := synchronizer.New(synchronizer.NewFixedViewDuration(100 * time.Millisecond))
		syncers[id] = s
		return []any{
			safety.New(),
			votingmachine.New(),
			consensus.New(),
			s,
			leaderrotation.NewRoundRobin(),
			net.Endpoint(),
			acceptor,
			queue,
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	committed := make([]chan struct{}, n)
	for i, e := range set {
		done := make(chan struct{})
		committed[i] = done
		count := 0
		e.EventLoop.RegisterHandler(libra.CommitEvent{}, func(event any) {
			count += len(event.(libra.CommitEvent).Blocks)
			if count >= wantCommits {
				select {
				case <-done:
				default:
					close(done)
				}
			}
		})
	}

	for i := range set {
		e := set[i]
		s := syncers[e.ID]
		go func() {
			s.Start(ctx)
			e.EventLoop.Run(ctx)
		}()
	}

	for i, done := range committed {
		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for validator %d to commit", i+1)
		}
	}
}
