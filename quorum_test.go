package libra

import (
	"fmt"
	"testing"
)

func TestQuorumSize(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{n: 4, want: 3},   // f=1
		{n: 5, want: 4},   // f=1
		{n: 6, want: 5},   // f=1
		{n: 7, want: 5},   // f=2
		{n: 8, want: 6},   // f=2
		{n: 9, want: 7},   // f=2
		{n: 10, want: 7},  // f=3
		{n: 11, want: 8},  // f=3
		{n: 12, want: 9},  // f=3
		{n: 13, want: 9},  // f=4
		{n: 16, want: 11}, // f=5
		{n: 19, want: 13}, // f=6
		{n: 22, want: 15}, // f=7
		{n: 25, want: 17}, // f=8
		{n: 31, want: 21}, // f=10
		{n: 34, want: 23}, // f=11
		{n: 37, want: 25}, // f=12
		{n: 40, want: 27}, // f=13
		{n: 43, want: 29}, // f=14
		{n: 73, want: 49}, // f=24
		{n: 74, want: 50}, // f=24
		{n: 75, want: 51}, // f=24
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			if got := QuorumSize(tt.n); got != tt.want {
				t.Errorf("QuorumSize(%d) = %d; want %d", tt.n, got, tt.want)
			}
			// For equally weighted validators the count and power thresholds agree.
			if got := QuorumPower(uint64(tt.n)); got != uint64(tt.want) {
				t.Errorf("QuorumPower(%d) = %d; want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestQuorumPower(t *testing.T) {
	tests := []struct {
		total uint64
		want  uint64
	}{
		{total: 1, want: 1},
		{total: 3, want: 3},
		{total: 4, want: 3},
		{total: 6, want: 5},
		{total: 7, want: 5},
		{total: 9, want: 7},
		{total: 10, want: 7},
		{total: 100, want: 67},
		{total: 3000, want: 2001},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("total=%d", tt.total), func(t *testing.T) {
			if got := QuorumPower(tt.total); got != tt.want {
				t.Errorf("QuorumPower(%d) = %d; want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestBlockHashIsStable(t *testing.T) {
	block := NewBlock(GenesisQC(), "cmd", 1, 12345, 2)
	same := NewBlock(GenesisQC(), "cmd", 1, 12345, 2)
	other := NewBlock(GenesisQC(), "cmd", 2, 12345, 2)

	if block.Hash() != same.Hash() {
		t.Error("identical blocks hash differently")
	}
	if block.Hash() == other.Hash() {
		t.Error("blocks with different rounds hash the same")
	}
}

func TestGenesis(t *testing.T) {
	genesis := GetGenesis()
	qc := GenesisQC()

	if qc.BlockID() != genesis.Hash() {
		t.Error("the genesis QC does not certify the genesis block")
	}
	if genesis.Round() != 0 || qc.Round() != 0 {
		t.Error("genesis must be at round 0")
	}
}

func TestSyncInfoAccessors(t *testing.T) {
	si := NewSyncInfo()
	if _, ok := si.QC(); ok {
		t.Error("empty sync info carries a QC")
	}
	if _, ok := si.TC(); ok {
		t.Error("empty sync info carries a TC")
	}

	si = si.WithQC(GenesisQC())
	qc, ok := si.QC()
	if !ok || qc.BlockID() != GetGenesis().Hash() {
		t.Error("stored QC was not returned")
	}
}
