package crypto

import (
	"slices"

	"github.com/kengeo/libra"
)

// Signature is the individual component in Multi.
type Signature interface {
	Signer() libra.ID
	ToBytes() []byte
}

// Multi is a quorum signature assembled from one signature per validator.
// It doubles as the IDSet of its signers.
type Multi[T Signature] map[libra.ID]T

// Restore rebuilds a Multi from previously created signatures, for example
// when loading certificates from storage. Use Combine to create new ones.
func Restore[T Signature](signatures []T) Multi[T] {
	sig := make(Multi[T], len(signatures))
	for _, s := range signatures {
		sig[s.Signer()] = s
	}
	return sig
}

// ToBytes returns the object as bytes.
func (sig Multi[T]) ToBytes() []byte {
	var b []byte
	// sort by ID to make it deterministic
	order := make([]libra.ID, 0, len(sig))
	for _, signature := range sig {
		order = append(order, signature.Signer())
	}
	slices.Sort(order)
	for _, id := range order {
		b = append(b, sig[id].ToBytes()...)
	}
	return b
}

// Participants returns the IDs of validators who contributed a signature.
func (sig Multi[T]) Participants() libra.IDSet {
	return sig
}

// Add adds an ID to the set.
func (sig Multi[T]) Add(_ libra.ID) {
	panic("not implemented")
}

// Contains returns true if the set contains the ID.
func (sig Multi[T]) Contains(id libra.ID) bool {
	_, ok := sig[id]
	return ok
}

// ForEach calls f for each ID in the set.
func (sig Multi[T]) ForEach(f func(libra.ID)) {
	for id := range sig {
		f(id)
	}
}

// RangeWhile calls f for each ID in the set until f returns false.
func (sig Multi[T]) RangeWhile(f func(libra.ID) bool) {
	for id := range sig {
		if !f(id) {
			break
		}
	}
}

// Len returns the number of entries in the set.
func (sig Multi[T]) Len() int {
	return len(sig)
}

func (sig Multi[T]) String() string {
	return libra.IDSetToString(sig)
}
