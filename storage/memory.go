package storage

import (
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

// Memory is a Storage implementation that keeps everything in process memory.
// It provides the same recovery semantics as the file-backed store when the
// consensus modules are rebuilt around it, which is what the crash tests do,
// but it obviously does not survive a real process restart.
type Memory struct {
	mut      sync.Mutex
	blocks   map[libra.Hash]*libra.Block
	qcs      map[libra.Hash]libra.QuorumCert
	liveness libra.PersistentLivenessData
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		blocks: make(map[libra.Hash]*libra.Block),
		qcs:    make(map[libra.Hash]libra.QuorumCert),
	}
}

// SaveTree records the given blocks and quorum certificates.
func (m *Memory) SaveTree(blocks []*libra.Block, qcs []libra.QuorumCert) error {
	m.mut.Lock()
	defer m.mut.Unlock()
	for _, block := range blocks {
		m.blocks[block.Hash()] = block
	}
	for _, qc := range qcs {
		if old, ok := m.qcs[qc.BlockID()]; !ok || qc.LedgerInfo().Round() > old.LedgerInfo().Round() {
			m.qcs[qc.BlockID()] = qc
		}
	}
	return nil
}

// PruneTree removes the blocks with the given ids and their certificates.
func (m *Memory) PruneTree(blockIDs []libra.Hash) error {
	m.mut.Lock()
	defer m.mut.Unlock()
	for _, id := range blockIDs {
		delete(m.blocks, id)
		delete(m.qcs, id)
	}
	return nil
}

// SaveLivenessData records the consensus liveness state.
func (m *Memory) SaveLivenessData(data libra.PersistentLivenessData) error {
	m.mut.Lock()
	defer m.mut.Unlock()
	m.liveness = data
	return nil
}

// Load restores the saved state.
func (m *Memory) Load() (libra.RecoveryData, error) {
	m.mut.Lock()
	defer m.mut.Unlock()
	return assembleRecovery(m.blocks, m.qcs, m.liveness), nil
}

var _ modules.Storage = (*Memory)(nil)
