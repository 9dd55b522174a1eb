package modules

import "github.com/kengeo/libra"

// Options stores runtime configuration settings.
type Options struct {
	id         libra.ID
	privateKey libra.PrivateKey

	sharedRandomSeed int64
}

// ID returns the ID.
func (opts Options) ID() libra.ID {
	return opts.id
}

// PrivateKey returns the private key.
func (opts Options) PrivateKey() libra.PrivateKey {
	return opts.privateKey
}

// SharedRandomSeed returns a random number that is shared between all validators.
func (opts Options) SharedRandomSeed() int64 {
	return opts.sharedRandomSeed
}

// SetSharedRandomSeed sets the shared random seed.
func (opts *Options) SetSharedRandomSeed(seed int64) {
	opts.sharedRandomSeed = seed
}
