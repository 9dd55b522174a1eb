package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

const (
	blockDir     = "blocks"
	qcDir        = "qcs"
	livenessFile = "liveness.state"

	blockExt = ".blk"
	qcExt    = ".qc"
)

// FileStorage is a Storage implementation backed by a directory of msgpack
// encoded records. Blocks and certificates get one file each, keyed by block
// hash, so that pruning is a matter of deleting files. The liveness state is a
// single file replaced atomically, because a half-written liveness record
// after a crash could allow a double vote.
type FileStorage struct {
	mut sync.Mutex
	dir string
}

// NewFileStorage opens the store rooted at dir, creating it if necessary.
func NewFileStorage(dir string) (*FileStorage, error) {
	for _, sub := range []string{blockDir, qcDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileStorage{dir: dir}, nil
}

// SaveTree durably records the given blocks and quorum certificates.
func (fs *FileStorage) SaveTree(blocks []*libra.Block, qcs []libra.QuorumCert) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	for _, block := range blocks {
		rec, err := blockToRecord(block)
		if err != nil {
			return err
		}
		buf, err := marshal(rec)
		if err != nil {
			return err
		}
		if err := fs.writeAtomic(fs.blockPath(block.Hash()), buf); err != nil {
			return fmt.Errorf("failed to save block %.8s: %w", block.Hash(), err)
		}
	}

	for _, qc := range qcs {
		if keep, err := fs.supersedes(qc); err != nil {
			return err
		} else if !keep {
			continue
		}
		rec, err := quorumCertToRecord(qc)
		if err != nil {
			return err
		}
		buf, err := marshal(rec)
		if err != nil {
			return err
		}
		if err := fs.writeAtomic(fs.qcPath(qc.BlockID()), buf); err != nil {
			return fmt.Errorf("failed to save QC for round %d: %w", qc.Round(), err)
		}
	}
	return nil
}

// supersedes reports whether qc should replace the stored certificate for the
// same block. A certificate carrying a newer commit decision wins.
func (fs *FileStorage) supersedes(qc libra.QuorumCert) (bool, error) {
	buf, err := os.ReadFile(fs.qcPath(qc.BlockID()))
	if os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	var rec quorumCertRecord
	if err := unmarshal(buf, &rec); err != nil {
		return false, err
	}
	return uint64(qc.LedgerInfo().Round()) > rec.LedgerInfo.Round, nil
}

// PruneTree removes the blocks with the given ids and their certificates.
func (fs *FileStorage) PruneTree(blockIDs []libra.Hash) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	for _, id := range blockIDs {
		if err := os.Remove(fs.blockPath(id)); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := os.Remove(fs.qcPath(id)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// SaveLivenessData durably records the consensus liveness state.
func (fs *FileStorage) SaveLivenessData(data libra.PersistentLivenessData) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	rec, err := livenessToRecord(data)
	if err != nil {
		return err
	}
	buf, err := marshal(rec)
	if err != nil {
		return err
	}
	return fs.writeAtomic(filepath.Join(fs.dir, livenessFile), buf)
}

// Load restores the saved state. Corrupt entries are skipped rather than
// failing the whole recovery, except for the liveness record, which must be
// intact for voting to be safe.
func (fs *FileStorage) Load() (libra.RecoveryData, error) {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	var liveness libra.PersistentLivenessData
	buf, err := os.ReadFile(filepath.Join(fs.dir, livenessFile))
	if err == nil {
		var rec livenessRecord
		if err := unmarshal(buf, &rec); err != nil {
			return libra.RecoveryData{}, fmt.Errorf("corrupt liveness record: %w", err)
		}
		if liveness, err = livenessFromRecord(rec); err != nil {
			return libra.RecoveryData{}, fmt.Errorf("corrupt liveness record: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return libra.RecoveryData{}, err
	}

	blocks := make(map[libra.Hash]*libra.Block)
	err = fs.forEachFile(blockDir, blockExt, func(buf []byte) error {
		var rec blockRecord
		if err := unmarshal(buf, &rec); err != nil {
			return err
		}
		block, err := blockFromRecord(rec)
		if err != nil {
			return err
		}
		blocks[block.Hash()] = block
		return nil
	})
	if err != nil {
		return libra.RecoveryData{}, err
	}

	qcs := make(map[libra.Hash]libra.QuorumCert)
	err = fs.forEachFile(qcDir, qcExt, func(buf []byte) error {
		var rec quorumCertRecord
		if err := unmarshal(buf, &rec); err != nil {
			return err
		}
		qc, err := quorumCertFromRecord(rec)
		if err != nil {
			return err
		}
		qcs[qc.BlockID()] = qc
		return nil
	})
	if err != nil {
		return libra.RecoveryData{}, err
	}

	return assembleRecovery(blocks, qcs, liveness), nil
}

func (fs *FileStorage) forEachFile(sub, ext string, decode func(buf []byte) error) error {
	entries, err := os.ReadDir(filepath.Join(fs.dir, sub))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		path := filepath.Join(fs.dir, sub, entry.Name())
		buf, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := decode(buf); err != nil {
			// a record that cannot be decoded is treated as lost
			continue
		}
	}
	return nil
}

func (fs *FileStorage) blockPath(id libra.Hash) string {
	return filepath.Join(fs.dir, blockDir, hex.EncodeToString(id[:])+blockExt)
}

func (fs *FileStorage) qcPath(id libra.Hash) string {
	return filepath.Join(fs.dir, qcDir, hex.EncodeToString(id[:])+qcExt)
}

// writeAtomic writes buf to a temporary file, syncs it, and renames it into
// place so that readers never observe a partial write.
func (fs *FileStorage) writeAtomic(path string, buf []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ modules.Storage = (*FileStorage)(nil)
