package storage_test

import (
	"testing"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/modules"
	"github.com/kengeo/libra/storage"
)

func testSignature(t *testing.T, signers ...libra.ID) libra.QuorumSignature {
	t.Helper()
	sigs := make([]*crypto.ECDSASignature, 0, len(signers))
	for _, id := range signers {
		sigs = append(sigs, crypto.RestoreECDSASignature([]byte{byte(id), 2, 3}, id))
	}
	return crypto.Restore(sigs)
}

func testQC(t *testing.T, round libra.Round, blockID libra.Hash, li libra.LedgerInfo) libra.QuorumCert {
	t.Helper()
	return libra.NewQuorumCert(testSignature(t, 1, 2, 3), round, round-1, blockID, li)
}

// chain returns n blocks in a line on top of genesis, with a QC for each link.
func chain(t *testing.T, n int) (blocks []*libra.Block, qcs []libra.QuorumCert) {
	t.Helper()
	qc := libra.GenesisQC()
	for round := libra.Round(1); round <= libra.Round(n); round++ {
		block := libra.NewBlock(qc, libra.Command("cmd"), round, int64(round), 1)
		blocks = append(blocks, block)
		qc = testQC(t, round, block.Hash(), libra.LedgerInfo{})
		qcs = append(qcs, qc)
	}
	return blocks, qcs
}

func stores(t *testing.T) map[string]modules.Storage {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return map[string]modules.Storage{
		"Memory": storage.NewMemory(),
		"File":   fs,
	}
}

func TestSaveAndLoadTree(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			blocks, qcs := chain(t, 3)
			if err := store.SaveTree(blocks, qcs); err != nil {
				t.Fatalf("SaveTree: %v", err)
			}

			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if data.Root != nil {
				t.Errorf("expected nil root before any commit, got %v", data.Root)
			}
			if len(data.Blocks) != len(blocks) {
				t.Fatalf("recovered %d blocks, want %d", len(data.Blocks), len(blocks))
			}
			for i, block := range data.Blocks {
				if block.Hash() != blocks[i].Hash() {
					t.Errorf("block %d: recovered hash %.8s, want %.8s", i, block.Hash(), blocks[i].Hash())
				}
				if sig := block.QuorumCert().Signature(); i > 0 && sig.Participants().Len() != 3 {
					t.Errorf("block %d: lost QC participants", i)
				}
			}
		})
	}
}

func TestLoadDerivesRootFromCommit(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			blocks, qcs := chain(t, 4)

			// the QC for block 3 commits block 1
			committed := blocks[0]
			li := libra.NewLedgerInfo(committed.Hash(), committed.Round(), libra.Hash{1}, 0)
			qcs[2] = testQC(t, blocks[2].Round(), blocks[2].Hash(), li)

			if err := store.SaveTree(blocks, qcs); err != nil {
				t.Fatalf("SaveTree: %v", err)
			}

			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if data.Root == nil {
				t.Fatal("expected a recovery root")
			}
			if data.Root.Hash() != committed.Hash() {
				t.Errorf("root is %.8s, want %.8s", data.Root.Hash(), committed.Hash())
			}
			if data.RootQC.LedgerInfo().BlockID() != committed.Hash() {
				t.Errorf("root QC does not commit the root")
			}
			if len(data.Blocks) != len(blocks)-1 {
				t.Errorf("recovered %d non-root blocks, want %d", len(data.Blocks), len(blocks)-1)
			}
			for i := 1; i < len(data.Blocks); i++ {
				if data.Blocks[i].Round() < data.Blocks[i-1].Round() {
					t.Fatal("recovered blocks are not in round order")
				}
			}
		})
	}
}

func TestPruneTree(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			blocks, qcs := chain(t, 3)
			if err := store.SaveTree(blocks, qcs); err != nil {
				t.Fatalf("SaveTree: %v", err)
			}
			if err := store.PruneTree([]libra.Hash{blocks[0].Hash(), blocks[1].Hash()}); err != nil {
				t.Fatalf("PruneTree: %v", err)
			}

			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(data.Blocks) != 1 {
				t.Fatalf("recovered %d blocks after pruning, want 1", len(data.Blocks))
			}
			if data.Blocks[0].Hash() != blocks[2].Hash() {
				t.Errorf("wrong block survived pruning")
			}
		})
	}
}

func TestSaveAndLoadLivenessData(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			qc := testQC(t, 7, libra.Hash{1}, libra.LedgerInfo{})
			tc := libra.NewTimeoutCert(testSignature(t, 1, 2, 4), 8)
			saved := libra.PersistentLivenessData{
				LastVotedRound: 9,
				HighestQC:      &qc,
				HighestTC:      &tc,
			}
			if err := store.SaveLivenessData(saved); err != nil {
				t.Fatalf("SaveLivenessData: %v", err)
			}

			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			got := data.LivenessData
			if got.LastVotedRound != saved.LastVotedRound {
				t.Errorf("LastVotedRound = %d, want %d", got.LastVotedRound, saved.LastVotedRound)
			}
			if got.HighestQC == nil || !got.HighestQC.Equals(qc) {
				t.Errorf("HighestQC was not recovered")
			}
			if got.HighestTC == nil || got.HighestTC.Round() != tc.Round() {
				t.Errorf("HighestTC was not recovered")
			}
		})
	}
}

func TestLoadEmptyStore(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if data.Root != nil || len(data.Blocks) != 0 || len(data.QuorumCerts) != 0 {
				t.Errorf("expected empty recovery data, got %+v", data)
			}
			if data.LivenessData.LastVotedRound != 0 {
				t.Errorf("expected zero liveness data")
			}
		})
	}
}

func TestMultiSignatureKeepsSignerPairing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			blocks, qcs := chain(t, 2)
			if err := store.SaveTree(blocks, qcs); err != nil {
				t.Fatalf("SaveTree: %v", err)
			}

			data, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(data.Blocks) != 2 {
				t.Fatalf("recovered %d blocks, want 2", len(data.Blocks))
			}
			sig, ok := data.Blocks[1].QuorumCert().Signature().(crypto.Multi[*crypto.ECDSASignature])
			if !ok {
				t.Fatalf("recovered signature has type %T", data.Blocks[1].QuorumCert().Signature())
			}
			for id := libra.ID(1); id <= 3; id++ {
				s, ok := sig[id]
				if !ok {
					t.Fatalf("signer %d missing from recovered signature", id)
				}
				if b := s.ToBytes(); len(b) == 0 || b[0] != byte(id) {
					t.Errorf("signer %d was paired with signature %x", id, b)
				}
			}
		})
	}
}
