// Package synchronizer implements the pacemaker that keeps replicas in the
// same round. Rounds advance when a certificate for the current round is
// observed, or when enough replicas time out to form a timeout certificate.
package synchronizer

import (
	"context"
	"time"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/eventloop"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
	"github.com/kengeo/libra/safety"
)

// RoundChangeEvent is sent on the event loop whenever the round advances.
type RoundChangeEvent struct {
	Round   libra.Round
	Timeout bool
}

// TimeoutEvent is sent on the event loop when the local round timer fires.
type TimeoutEvent struct {
	Round libra.Round
}

// Synchronizer drives round advancement.
type Synchronizer struct {
	auth           modules.Crypto
	config         modules.Configuration
	consensus      modules.Consensus
	leaderRotation modules.LeaderRotation
	sender         modules.Sender
	tree           *blocktree.BlockTree
	safety         *safety.Rules
	eventLoop      *eventloop.EventLoop
	logger         logging.Logger
	opts           *modules.Options

	currentRound libra.Round

	// The last timeout message we sent. If the round times out again before
	// we advance, the same message is sent again.
	lastTimeout *libra.TimeoutMsg

	duration modules.ViewDuration
	timer    *time.Timer

	// cancelled at the end of the current round
	roundCtx  context.Context
	cancelCtx context.CancelFunc

	// collected timeout messages per round
	timeouts map[libra.Round]map[libra.ID]libra.TimeoutMsg
}

// New creates a new Synchronizer.
func New(duration modules.ViewDuration) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		currentRound: 1,

		roundCtx:  ctx,
		cancelCtx: cancel,

		duration: duration,
		timer:    time.AfterFunc(0, func() {}), // replaced when Start is called

		timeouts: make(map[libra.Round]map[libra.ID]libra.TimeoutMsg),
	}
}

// InitModule gives the synchronizer access to the other modules and registers
// its event handlers.
func (s *Synchronizer) InitModule(mods *modules.Core) {
	if duration, ok := s.duration.(modules.Module); ok {
		duration.InitModule(mods)
	}
	mods.Get(
		&s.auth,
		&s.config,
		&s.consensus,
		&s.leaderRotation,
		&s.sender,
		&s.tree,
		&s.safety,
		&s.eventLoop,
		&s.logger,
		&s.opts,
	)

	s.eventLoop.RegisterHandler(TimeoutEvent{}, func(event any) {
		if event.(TimeoutEvent).Round == s.currentRound {
			s.OnLocalTimeout()
		}
	})

	s.eventLoop.RegisterHandler(libra.NewRoundMsg{}, func(event any) {
		s.OnNewRound(event.(libra.NewRoundMsg))
	})

	s.eventLoop.RegisterHandler(libra.TimeoutMsg{}, func(event any) {
		s.OnRemoteTimeout(event.(libra.TimeoutMsg))
	})
}

// Start starts the round timers. They stop when ctx is cancelled.
func (s *Synchronizer) Start(ctx context.Context) {
	s.timer = time.AfterFunc(s.duration.Duration(), func() {
		// The event loop will run OnLocalTimeout for us.
		s.cancelCtx()
		s.eventLoop.AddEvent(TimeoutEvent{s.currentRound})
	})

	go func() {
		<-ctx.Done()
		s.timer.Stop()
	}()

	// the first leader proposes without waiting for new round messages
	if s.currentRound == 1 && s.leaderRotation.GetLeader(s.currentRound) == s.opts.ID() {
		s.consensus.Propose(s.SyncInfo())
	}
}

// Round returns the current round.
func (s *Synchronizer) Round() libra.Round {
	return s.currentRound
}

// RoundContext returns a context that is cancelled at the end of the round.
func (s *Synchronizer) RoundContext() context.Context {
	return s.roundCtx
}

// SyncInfo returns the highest certificates known to this replica.
func (s *Synchronizer) SyncInfo() libra.SyncInfo {
	si := libra.NewSyncInfo().WithQC(s.tree.HighQC()).WithCommitQC(s.tree.HighCommitCert())
	if tc, ok := s.safety.HighestTC(); ok {
		si = si.WithTC(tc)
	}
	return si
}

// OnLocalTimeout is called when the round timer fires.
func (s *Synchronizer) OnLocalTimeout() {
	// Reset the timer and context so that another timeout can fire in the
	// same round. The same timeout message is rebroadcast until a timeout
	// certificate forms.
	if s.roundCtx.Err() != nil {
		s.newCtx(s.duration.Duration())
	}
	s.timer.Reset(s.duration.Duration())

	if s.lastTimeout != nil && s.lastTimeout.Round == s.currentRound {
		s.sender.Timeout(*s.lastTimeout)
		return
	}

	s.duration.ViewTimeout() // increase the duration of the next round
	round := s.currentRound
	s.logger.Debugf("OnLocalTimeout: %v", round)

	sig, err := s.auth.Sign(round.ToBytes())
	if err != nil {
		s.logger.Warnf("Failed to sign round: %v", err)
		return
	}
	timeoutMsg := libra.TimeoutMsg{
		ID:             s.opts.ID(),
		Round:          round,
		SyncInfo:       s.SyncInfo(),
		RoundSignature: sig,
	}
	s.lastTimeout = &timeoutMsg

	s.sender.Timeout(timeoutMsg)
	s.OnRemoteTimeout(timeoutMsg)
}

// OnRemoteTimeout handles an incoming timeout from a remote replica. Once the
// voting power behind the timeouts for a round reaches the quorum threshold,
// a timeout certificate is formed and the round advances.
func (s *Synchronizer) OnRemoteTimeout(timeout libra.TimeoutMsg) {
	defer func() {
		// cleanup old timeouts
		for round := range s.timeouts {
			if round < s.currentRound {
				delete(s.timeouts, round)
			}
		}
	}()

	if timeout.Round < s.currentRound {
		return
	}
	if err := s.auth.Verify(timeout.RoundSignature, timeout.Round.ToBytes()); err != nil {
		s.logger.Infof("invalid timeout signature from replica %d: %v", timeout.ID, err)
		return
	}
	s.logger.Debug("OnRemoteTimeout: ", timeout)

	s.AdvanceRound(timeout.SyncInfo)

	timeouts, ok := s.timeouts[timeout.Round]
	if !ok {
		timeouts = make(map[libra.ID]libra.TimeoutMsg)
		s.timeouts[timeout.Round] = timeouts
	}

	if _, ok := timeouts[timeout.ID]; !ok {
		timeouts[timeout.ID] = timeout
	}

	var power uint64
	for id := range timeouts {
		if validator, ok := s.config.Validator(id); ok {
			power += validator.VotingPower()
		}
	}
	if power < s.config.QuorumPower() {
		return
	}

	timeoutList := make([]libra.TimeoutMsg, 0, len(timeouts))
	for _, t := range timeouts {
		timeoutList = append(timeoutList, t)
	}

	tc, err := s.auth.CreateTimeoutCert(timeout.Round, timeoutList)
	if err != nil {
		s.logger.Debugf("Failed to create timeout certificate: %v", err)
		return
	}

	delete(s.timeouts, timeout.Round)

	s.AdvanceRound(s.SyncInfo().WithTC(tc))
}

// OnNewRound handles an incoming NewRoundMsg.
func (s *Synchronizer) OnNewRound(msg libra.NewRoundMsg) {
	s.AdvanceRound(msg.SyncInfo)
}

// AdvanceRound attempts to advance to the round following the highest
// certificate in syncInfo. A quorum certificate counts as a successful round;
// a timeout certificate alone counts as a failed one.
func (s *Synchronizer) AdvanceRound(syncInfo libra.SyncInfo) {
	newRound := libra.Round(0)
	timeout := false

	if tc, ok := syncInfo.TC(); ok {
		if err := s.auth.VerifyTimeoutCert(tc); err != nil {
			s.logger.Infof("timeout certificate could not be verified: %v", err)
			return
		}
		if err := s.safety.ObserveTC(tc); err != nil {
			s.logger.Errorf("failed to record timeout certificate: %v", err)
			return
		}
		newRound = tc.Round()
		timeout = true
	}

	if qc, ok := syncInfo.QC(); ok {
		if err := s.consensus.ProcessSyncInfo(syncInfo); err != nil {
			s.logger.Infof("failed to adopt sync info: %v", err)
			return
		}
		if qc.Round() >= newRound {
			newRound = qc.Round()
			timeout = false
		}
	}

	if newRound < s.currentRound {
		return
	}

	s.timer.Stop()

	if !timeout {
		s.duration.ViewSucceeded()
	}

	s.currentRound = newRound + 1
	s.lastTimeout = nil
	s.duration.ViewStarted()

	duration := s.duration.Duration()
	// cancel the old round context and set up the next one
	s.newCtx(duration)
	s.timer.Reset(duration)

	s.logger.Debugf("advanced to round %d", s.currentRound)
	s.eventLoop.AddEvent(RoundChangeEvent{Round: s.currentRound, Timeout: timeout})

	leader := s.leaderRotation.GetLeader(s.currentRound)
	if leader == s.opts.ID() {
		s.consensus.Propose(syncInfo)
	} else if err := s.sender.NewRound(leader, syncInfo); err != nil {
		s.logger.Infof("failed to send new round message to replica %d: %v", leader, err)
	}
}

func (s *Synchronizer) newCtx(duration time.Duration) {
	s.cancelCtx()
	s.roundCtx, s.cancelCtx = context.WithTimeout(context.Background(), duration)
}

var (
	_ modules.Synchronizer = (*Synchronizer)(nil)
	_ modules.Module       = (*Synchronizer)(nil)
)
