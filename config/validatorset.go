// Package config holds the validator set and the file-based configuration of
// a replica.
package config

import (
	"sort"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

// ValidatorInfo holds the identity of one validator.
type ValidatorInfo struct {
	id     libra.ID
	pubKey libra.PublicKey
	power  uint64
}

// NewValidatorInfo creates the info entry for one validator.
func NewValidatorInfo(id libra.ID, pubKey libra.PublicKey, power uint64) *ValidatorInfo {
	return &ValidatorInfo{id: id, pubKey: pubKey, power: power}
}

// ID returns the validator's id.
func (v *ValidatorInfo) ID() libra.ID {
	return v.id
}

// PublicKey returns the validator's public key.
func (v *ValidatorInfo) PublicKey() libra.PublicKey {
	return v.pubKey
}

// VotingPower returns the validator's voting weight.
func (v *ValidatorInfo) VotingPower() uint64 {
	return v.power
}

// ValidatorSet is the static set of validators participating in consensus.
// Iteration order is ascending by id so that schemes deriving randomness from
// the set order agree across validators.
type ValidatorSet struct {
	validators map[libra.ID]*ValidatorInfo
	order      []libra.ID
	totalPower uint64
}

// NewValidatorSet returns an empty validator set.
func NewValidatorSet() *ValidatorSet {
	return &ValidatorSet{
		validators: make(map[libra.ID]*ValidatorInfo),
	}
}

// AddValidator adds a validator to the set. Adding an id twice replaces the
// earlier entry.
func (vs *ValidatorSet) AddValidator(id libra.ID, pubKey libra.PublicKey, power uint64) {
	if old, ok := vs.validators[id]; ok {
		vs.totalPower -= old.power
	} else {
		vs.order = append(vs.order, id)
		sort.Slice(vs.order, func(i, j int) bool { return vs.order[i] < vs.order[j] })
	}
	vs.validators[id] = NewValidatorInfo(id, pubKey, power)
	vs.totalPower += power
}

// Validator returns the validator with the given id.
func (vs *ValidatorSet) Validator(id libra.ID) (modules.Validator, bool) {
	v, ok := vs.validators[id]
	return v, ok
}

// Validators calls f for each validator in ascending id order.
func (vs *ValidatorSet) Validators(f func(modules.Validator)) {
	for _, id := range vs.order {
		f(vs.validators[id])
	}
}

// Len returns the number of validators in the set.
func (vs *ValidatorSet) Len() int {
	return len(vs.validators)
}

// TotalPower returns the combined voting power of all validators.
func (vs *ValidatorSet) TotalPower() uint64 {
	return vs.totalPower
}

// QuorumPower returns the minimum accumulated voting power that forms a quorum.
func (vs *ValidatorSet) QuorumPower() uint64 {
	return libra.QuorumPower(vs.totalPower)
}

var _ modules.Configuration = (*ValidatorSet)(nil)
