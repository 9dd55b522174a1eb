package leaderrotation

import (
	"math/rand"

	wr "github.com/mroth/weightedrand"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
)

type weighted struct {
	config modules.Configuration
	opts   *modules.Options
	logger logging.Logger
}

func (w *weighted) InitModule(mods *modules.Core) {
	mods.Get(
		&w.config,
		&w.opts,
		&w.logger,
	)
}

// GetLeader returns the id of the leader in the given round.
// Validators are sampled proportionally to their voting power, seeded by the
// shared random seed and the round number so that all validators pick the
// same leader without communicating.
func (w weighted) GetLeader(round libra.Round) libra.ID {
	choices := make([]wr.Choice, 0, w.config.Len())
	w.config.Validators(func(v modules.Validator) {
		choices = append(choices, wr.Choice{Item: v.ID(), Weight: uint(v.VotingPower())})
	})

	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		w.logger.Errorf("weighted leader rotation: %v", err)
		// fall back to round-robin so that rounds can still make progress
		return chooseRoundRobin(round, w.config.Len())
	}

	seed := w.opts.SharedRandomSeed() + int64(round)
	rnd := rand.New(rand.NewSource(seed))
	return chooser.PickSource(rnd).(libra.ID)
}

// NewWeighted returns a leader rotation implementation that weights each
// validator's chance of leading a round by its voting power.
func NewWeighted() modules.LeaderRotation {
	return &weighted{}
}
