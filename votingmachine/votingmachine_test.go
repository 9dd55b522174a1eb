package votingmachine_test

import (
	"testing"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/internal/testutil"
	"github.com/kengeo/libra/votingmachine"
)

// wireUp creates n validators where validator 1 runs the voting machine.
func wireUp(t *testing.T, n int) (*votingmachine.VotingMachine, []*testutil.Essentials) {
	t.Helper()
	vm := votingmachine.New()
	set := testutil.CreateEssentialsSet(t, n, crypto.NameECDSA, func(id libra.ID) []any {
		if id == 1 {
			return []any{vm}
		}
		return nil
	})
	return vm, set
}

func TestQuorumForms(t *testing.T) {
	vm, set := wireUp(t, 4)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	signers := testutil.Signers(set)

	// 4 equally weighted validators need 3 votes
	for i := 0; i < 2; i++ {
		receipt := vm.AddVote(testutil.CreateVote(t, block, libra.LedgerInfo{}, signers[i]))
		if receipt.Status != votingmachine.Pending {
			t.Fatalf("vote %d: status %v, want Pending", i, receipt.Status)
		}
		if receipt.Power != uint64(i+1) {
			t.Errorf("vote %d: power %d, want %d", i, receipt.Power, i+1)
		}
	}

	receipt := vm.AddVote(testutil.CreateVote(t, block, libra.LedgerInfo{}, signers[2]))
	if receipt.Status != votingmachine.QCFormed {
		t.Fatalf("status %v, want QCFormed", receipt.Status)
	}
	if receipt.QC == nil {
		t.Fatal("receipt is missing the QC")
	}
	if receipt.QC.BlockID() != block.Hash() {
		t.Error("QC certifies the wrong block")
	}
	if err := set[0].Auth.VerifyQuorumCert(*receipt.QC); err != nil {
		t.Errorf("assembled QC does not verify: %v", err)
	}
}

func TestDuplicateVoteIsNotDoubleCounted(t *testing.T) {
	vm, set := wireUp(t, 4)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	signers := testutil.Signers(set)

	vote := testutil.CreateVote(t, block, libra.LedgerInfo{}, signers[1])
	vm.AddVote(vote)
	receipt := vm.AddVote(vote)
	if receipt.Status != votingmachine.DuplicateVote {
		t.Fatalf("status %v, want DuplicateVote", receipt.Status)
	}
	if receipt.Power != 1 {
		t.Errorf("power %d after duplicate, want 1", receipt.Power)
	}
}

func TestEquivocationIsRejected(t *testing.T) {
	vm, set := wireUp(t, 4)
	signers := testutil.Signers(set)
	blockA := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	blockB := testutil.NewBlock(t, libra.GenesisQC(), 1, 2)

	vm.AddVote(testutil.CreateVote(t, blockA, libra.LedgerInfo{}, signers[1]))
	receipt := vm.AddVote(testutil.CreateVote(t, blockB, libra.LedgerInfo{}, signers[1]))
	if receipt.Status != votingmachine.EquivocateVote {
		t.Fatalf("status %v, want EquivocateVote", receipt.Status)
	}

	// the equivocating vote must not count towards blockB
	receipt = vm.AddVote(testutil.CreateVote(t, blockB, libra.LedgerInfo{}, signers[2]))
	if receipt.Power != 1 {
		t.Errorf("power behind second block is %d, want 1", receipt.Power)
	}
}

func TestStaleVoteAfterQC(t *testing.T) {
	vm, set := wireUp(t, 4)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	signers := testutil.Signers(set)

	for i := 0; i < 3; i++ {
		vm.AddVote(testutil.CreateVote(t, block, libra.LedgerInfo{}, signers[i]))
	}

	receipt := vm.AddVote(testutil.CreateVote(t, block, libra.LedgerInfo{}, signers[3]))
	if receipt.Status != votingmachine.StaleVote {
		t.Fatalf("status %v, want StaleVote", receipt.Status)
	}
}

func TestInvalidSignatureIsRejected(t *testing.T) {
	vm, set := wireUp(t, 4)
	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)

	// signed by validator 2's key but claiming to be validator 3
	good := testutil.CreateVote(t, block, libra.LedgerInfo{}, set[1].Auth)
	forged := libra.NewVote(3, good.BlockID(), good.Round(), good.ParentRound(), good.LedgerInfo(), good.Signature())

	receipt := vm.AddVote(forged)
	if receipt.Status != votingmachine.InvalidSignature {
		t.Fatalf("status %v, want InvalidSignature", receipt.Status)
	}
}

func TestWeightedQuorum(t *testing.T) {
	vm := votingmachine.New()
	keys := testutil.GenerateKeys(t, 3, crypto.NameECDSA)
	vs := testutil.NewValidatorSet(t, keys)
	// validator 1 alone holds a quorum: 7 of 9 total power
	vs.AddValidator(1, keys[0].Public(), 7)

	es := make([]*testutil.Essentials, 0, 3)
	for i, key := range keys {
		var extra []any
		if i == 0 {
			extra = []any{vm}
		}
		es = append(es, testutil.WireUp(t, libra.ID(i+1), vs, key, extra...))
	}

	block := testutil.NewBlock(t, libra.GenesisQC(), 1, 1)
	receipt := vm.AddVote(testutil.CreateVote(t, block, libra.LedgerInfo{}, es[0].Auth))
	if receipt.Status != votingmachine.QCFormed {
		t.Fatalf("status %v, want QCFormed from a single heavy vote", receipt.Status)
	}
}
