// Package leaderrotation provides deterministic leader election schemes.
package leaderrotation

import (
	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

type roundRobin struct {
	config modules.Configuration
}

func (rr *roundRobin) InitModule(mods *modules.Core) {
	mods.Get(&rr.config)
}

// GetLeader returns the id of the leader in the given round.
func (rr roundRobin) GetLeader(round libra.Round) libra.ID {
	// TODO: does not support reconfiguration
	// assume IDs start at 1
	return chooseRoundRobin(round, rr.config.Len())
}

// NewRoundRobin returns a new round-robin leader rotation implementation.
func NewRoundRobin() modules.LeaderRotation {
	return &roundRobin{}
}

func chooseRoundRobin(round libra.Round, numValidators int) libra.ID {
	return libra.ID(uint64(round)%uint64(numValidators) + 1)
}
