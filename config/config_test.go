package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/config"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/modules"
)

// writeKeys generates n key pairs on disk and returns the validator entries
// pointing at the public key files.
func writeKeys(t *testing.T, dir string, n int) []config.ValidatorEntry {
	t.Helper()
	entries := make([]config.ValidatorEntry, 0, n)
	for i := 1; i <= n; i++ {
		key, err := crypto.GeneratePrivateKey(crypto.NameECDSA)
		if err != nil {
			t.Fatalf("GeneratePrivateKey: %v", err)
		}
		privFile := filepath.Join(dir, "key"+string(rune('0'+i)))
		pubFile := privFile + ".pub"
		if err := crypto.WritePrivateKeyFile(key, privFile); err != nil {
			t.Fatalf("WritePrivateKeyFile: %v", err)
		}
		if err := crypto.WritePublicKeyFile(key.Public(), pubFile); err != nil {
			t.Fatalf("WritePublicKeyFile: %v", err)
		}
		entries = append(entries, config.ValidatorEntry{ID: uint32(i), PubKeyFile: pubFile})
	}
	return entries
}

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("id", 2)
	v.Set("validators", []map[string]any{{"id": 1}, {"id": 2}})

	cfg, err := config.FromViper(v)
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Scheme != crypto.NameECDSA {
		t.Errorf("default scheme is %q, want %q", cfg.Scheme, crypto.NameECDSA)
	}
	if cfg.LeaderRotation != "round-robin" {
		t.Errorf("default leader rotation is %q, want round-robin", cfg.LeaderRotation)
	}
	if cfg.ViewTimeout != 100*time.Millisecond {
		t.Errorf("default view timeout is %v, want 100ms", cfg.ViewTimeout)
	}
	if cfg.PruneBound != 100 {
		t.Errorf("default prune bound is %d, want 100", cfg.PruneBound)
	}
}

func TestFromViperRejectsIncomplete(t *testing.T) {
	v := viper.New()
	v.Set("validators", []map[string]any{{"id": 1}})
	if _, err := config.FromViper(v); err == nil {
		t.Error("a configuration without an id was accepted")
	}

	v = viper.New()
	v.Set("id", 1)
	if _, err := config.FromViper(v); err == nil {
		t.Error("a configuration without validators was accepted")
	}
}

func TestValidatorSetFromConfig(t *testing.T) {
	dir := t.TempDir()
	entries := writeKeys(t, dir, 3)
	entries[2].Weight = 4

	cfg := &config.ReplicaConfig{ID: 1, Validators: entries}
	vs, err := cfg.ValidatorSet()
	if err != nil {
		t.Fatalf("ValidatorSet: %v", err)
	}

	if vs.Len() != 3 {
		t.Fatalf("set has %d validators, want 3", vs.Len())
	}
	if vs.TotalPower() != 6 {
		t.Errorf("total power is %d, want 6", vs.TotalPower())
	}
	v, ok := vs.Validator(1)
	if !ok || v.VotingPower() != 1 {
		t.Error("validator 1 should have the default weight of 1")
	}
}

func TestValidatorSetRequiresSelf(t *testing.T) {
	dir := t.TempDir()
	entries := writeKeys(t, dir, 2)

	cfg := &config.ReplicaConfig{ID: 9, Validators: entries}
	if _, err := cfg.ValidatorSet(); err == nil {
		t.Error("a replica outside the validator set was accepted")
	}
}

func TestValidatorSetOrderAndReplace(t *testing.T) {
	vs := config.NewValidatorSet()
	key, err := crypto.GeneratePrivateKey(crypto.NameECDSA)
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	for _, id := range []libra.ID{3, 1, 2} {
		vs.AddValidator(id, key.Public(), 1)
	}

	var order []libra.ID
	vs.Validators(func(v modules.Validator) { order = append(order, v.ID()) })
	for i, id := range order {
		if id != libra.ID(i+1) {
			t.Fatalf("iteration order %v is not ascending", order)
		}
	}

	vs.AddValidator(2, key.Public(), 5)
	if vs.Len() != 3 || vs.TotalPower() != 7 {
		t.Errorf("replacing a validator changed the set size or miscounted power")
	}
}
