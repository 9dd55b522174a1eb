// Package testutil provides helper methods that are useful for implementing tests.
package testutil

import (
	"crypto/sha256"
	"testing"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/config"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/eventloop"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
	"github.com/kengeo/libra/storage"
)

// GenerateKey generates a private key for use in tests.
func GenerateKey(t *testing.T, scheme string) libra.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey(scheme)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}
	return key
}

// GenerateKeys generates n private keys for use in tests.
func GenerateKeys(t *testing.T, n int, scheme string) []libra.PrivateKey {
	t.Helper()
	keys := make([]libra.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, GenerateKey(t, scheme))
	}
	return keys
}

// NewValidatorSet builds a validator set where validator i+1 uses keys[i].
// All validators get voting power 1.
func NewValidatorSet(t *testing.T, keys []libra.PrivateKey) *config.ValidatorSet {
	t.Helper()
	vs := config.NewValidatorSet()
	for i, key := range keys {
		vs.AddValidator(libra.ID(i+1), key.Public(), 1)
	}
	return vs
}

// SHA256Executor is a deterministic state computer for tests: the state id is
// the hash of the parent state and the block id.
type SHA256Executor struct{}

// Compute derives the next state id from the parent state and the block.
func (SHA256Executor) Compute(parentStateID libra.Hash, block *libra.Block) (libra.StateComputeResult, error) {
	h := sha256.New()
	h.Write(parentStateID[:])
	id := block.Hash()
	h.Write(id[:])
	var stateID libra.Hash
	copy(stateID[:], h.Sum(nil))
	return libra.StateComputeResult{StateID: stateID, Version: uint64(block.Round())}, nil
}

// Commit does nothing.
func (SHA256Executor) Commit(_ []*libra.Block, _ libra.LedgerInfo) error {
	return nil
}

var _ modules.StateComputer = (*SHA256Executor)(nil)

// Essentials bundles the modules most unit tests need for one validator.
type Essentials struct {
	ID        libra.ID
	Core      *modules.Core
	EventLoop *eventloop.EventLoop
	Auth      modules.Crypto
	Tree      *blocktree.BlockTree
	Storage   modules.Storage
}

// WireUp builds a module system for one validator with an event loop, logger,
// in-memory storage, block tree, and signing authority, plus any extra
// modules the test provides.
func WireUp(t *testing.T, id libra.ID, vs *config.ValidatorSet, key libra.PrivateKey, extra ...any) *Essentials {
	t.Helper()

	e := &Essentials{
		ID:        id,
		EventLoop: eventloop.New(100),
		Auth:      crypto.New(newCryptoBase(t, key)),
		Tree:      blocktree.New(10),
		Storage:   storage.NewMemory(),
	}

	builder := modules.NewBuilder(id, key)
	builder.Add(
		e.EventLoop,
		logging.New("test"),
		vs,
		e.Storage,
		SHA256Executor{},
		e.Auth,
		e.Tree,
	)
	builder.Add(extra...)
	e.Core = builder.Build()
	// Modules supplied by the test replace the defaults in the core, so
	// resolve the bundled fields from the core rather than keeping the
	// instances constructed above.
	e.Core.Get(&e.EventLoop, &e.Auth, &e.Tree, &e.Storage)
	return e
}

func newCryptoBase(t *testing.T, key libra.PrivateKey) modules.CryptoBase {
	t.Helper()
	switch key.(type) {
	case *crypto.BLS12PrivateKey:
		return crypto.NewBLS12()
	default:
		return crypto.NewECDSA()
	}
}

// CreateEssentialsSet wires up n validators sharing one validator set.
// The extra function supplies additional modules per validator.
func CreateEssentialsSet(t *testing.T, n int, scheme string, extra func(id libra.ID) []any) []*Essentials {
	t.Helper()
	keys := GenerateKeys(t, n, scheme)
	vs := NewValidatorSet(t, keys)
	set := make([]*Essentials, 0, n)
	for i := 0; i < n; i++ {
		id := libra.ID(i + 1)
		var mods []any
		if extra != nil {
			mods = extra(id)
		}
		set = append(set, WireUp(t, id, vs, keys[i], mods...))
	}
	return set
}

// Signers returns each validator's signing authority.
func Signers(set []*Essentials) []modules.Crypto {
	signers := make([]modules.Crypto, 0, len(set))
	for _, e := range set {
		signers = append(signers, e.Auth)
	}
	return signers
}

// CreateVote creates a vote for the given block using the given signer.
func CreateVote(t *testing.T, block *libra.Block, ledgerInfo libra.LedgerInfo, signer modules.Crypto) libra.Vote {
	t.Helper()
	vote, err := signer.CreateVote(block, ledgerInfo)
	if err != nil {
		t.Fatalf("Failed to create vote: %v", err)
	}
	return vote
}

// CreateVotes creates one vote for the block from each of the given signers.
func CreateVotes(t *testing.T, block *libra.Block, ledgerInfo libra.LedgerInfo, signers []modules.Crypto) []libra.Vote {
	t.Helper()
	votes := make([]libra.Vote, 0, len(signers))
	for _, signer := range signers {
		votes = append(votes, CreateVote(t, block, ledgerInfo, signer))
	}
	return votes
}

// CreateQC creates a QC for the block using the given signers.
func CreateQC(t *testing.T, block *libra.Block, ledgerInfo libra.LedgerInfo, signers []modules.Crypto) libra.QuorumCert {
	t.Helper()
	if len(signers) == 0 {
		return libra.QuorumCert{}
	}
	qc, err := signers[0].CreateQuorumCert(CreateVotes(t, block, ledgerInfo, signers))
	if err != nil {
		t.Fatalf("Failed to create QC: %v", err)
	}
	return qc
}

// CreateTimeouts creates a set of TimeoutMsg messages, one per validator.
func CreateTimeouts(t *testing.T, round libra.Round, set []*Essentials) []libra.TimeoutMsg {
	t.Helper()
	timeouts := make([]libra.TimeoutMsg, 0, len(set))
	for _, e := range set {
		sig, err := e.Auth.Sign(round.ToBytes())
		if err != nil {
			t.Fatalf("Failed to sign round: %v", err)
		}
		timeouts = append(timeouts, libra.TimeoutMsg{
			ID:             e.ID,
			Round:          round,
			RoundSignature: sig,
			SyncInfo:       libra.NewSyncInfo().WithQC(libra.GenesisQC()),
		})
	}
	return timeouts
}

// CreateTC generates a TC for the given round.
func CreateTC(t *testing.T, round libra.Round, set []*Essentials) libra.TimeoutCert {
	t.Helper()
	if len(set) == 0 {
		return libra.TimeoutCert{}
	}
	tc, err := set[0].Auth.CreateTimeoutCert(round, CreateTimeouts(t, round, set))
	if err != nil {
		t.Fatalf("Failed to create TC: %v", err)
	}
	return tc
}

// NewBlock creates a block in the given round on top of the block certified
// by qc, with a command derived from the round for uniqueness.
func NewBlock(t *testing.T, qc libra.QuorumCert, round libra.Round, author libra.ID) *libra.Block {
	t.Helper()
	return libra.NewBlock(qc, libra.Command(round.ToBytes()), round, int64(round), author)
}
