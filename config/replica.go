package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/crypto"
)

// ValidatorEntry describes one validator in the configuration file.
type ValidatorEntry struct {
	ID         uint32 `mapstructure:"id"`
	PubKeyFile string `mapstructure:"pubkey"`
	Weight     uint64 `mapstructure:"weight"`
}

// ReplicaConfig is the decoded configuration file of a single replica.
type ReplicaConfig struct {
	// ID is this replica's validator id.
	ID uint32 `mapstructure:"id"`
	// PrivKeyFile is the path to this replica's private key.
	PrivKeyFile string `mapstructure:"privkey"`
	// Scheme selects the signature scheme, "ecdsa" or "bls12".
	Scheme string `mapstructure:"crypto"`
	// StorageDir is where consensus state is persisted. Empty disables persistence.
	StorageDir string `mapstructure:"storage-dir"`
	// LeaderRotation selects the leader election scheme.
	LeaderRotation string `mapstructure:"leader-rotation"`
	// SharedSeed seeds randomized leader election. All validators must agree on it.
	SharedSeed int64 `mapstructure:"shared-seed"`
	// ViewTimeout is the initial round duration.
	ViewTimeout time.Duration `mapstructure:"view-timeout"`
	// MaxTimeout caps the round duration.
	MaxTimeout time.Duration `mapstructure:"max-timeout"`
	// DurationSamples is the number of round durations to sample when
	// estimating the timeout.
	DurationSamples uint32 `mapstructure:"duration-samples"`
	// TimeoutMultiplier scales the timeout after a round times out.
	TimeoutMultiplier float64 `mapstructure:"timeout-multiplier"`
	// PruneBound is the number of committed blocks kept for lagging replicas.
	PruneBound uint32 `mapstructure:"prune-bound"`
	// Validators lists every member of the validator set, including this replica.
	Validators []ValidatorEntry `mapstructure:"validators"`
}

// FromViper decodes the replica configuration from v and fills in defaults.
func FromViper(v *viper.Viper) (*ReplicaConfig, error) {
	cfg := &ReplicaConfig{
		Scheme:            crypto.NameECDSA,
		LeaderRotation:    "round-robin",
		ViewTimeout:       100 * time.Millisecond,
		MaxTimeout:        10 * time.Second,
		DurationSamples:   100,
		TimeoutMultiplier: 1.3,
		PruneBound:        100,
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.ID == 0 {
		return nil, fmt.Errorf("configuration is missing the replica id")
	}
	if len(cfg.Validators) == 0 {
		return nil, fmt.Errorf("configuration has no validators")
	}
	return cfg, nil
}

// PrivateKey reads this replica's private key.
func (cfg *ReplicaConfig) PrivateKey() (libra.PrivateKey, error) {
	return crypto.ReadPrivateKeyFile(cfg.PrivKeyFile)
}

// ValidatorSet builds the validator set from the configured entries,
// reading each validator's public key file. A missing weight counts as 1.
func (cfg *ReplicaConfig) ValidatorSet() (*ValidatorSet, error) {
	vs := NewValidatorSet()
	for _, entry := range cfg.Validators {
		if entry.ID == 0 {
			return nil, fmt.Errorf("validator entry is missing an id")
		}
		pubKey, err := crypto.ReadPublicKeyFile(entry.PubKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key of validator %d: %w", entry.ID, err)
		}
		weight := entry.Weight
		if weight == 0 {
			weight = 1
		}
		vs.AddValidator(libra.ID(entry.ID), pubKey, weight)
	}
	if _, ok := vs.Validator(libra.ID(cfg.ID)); !ok {
		return nil, fmt.Errorf("replica %d is not in the validator set", cfg.ID)
	}
	return vs, nil
}
