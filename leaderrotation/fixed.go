package leaderrotation

import (
	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

type fixed struct {
	leader libra.ID
}

// GetLeader returns the id of the leader in the given round.
func (f fixed) GetLeader(_ libra.Round) libra.ID {
	return f.leader
}

// NewFixed returns a new fixed-leader leader rotation implementation.
func NewFixed(leader libra.ID) modules.LeaderRotation {
	return fixed{leader}
}
