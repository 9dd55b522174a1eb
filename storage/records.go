// Package storage persists the block tree and the consensus liveness state
// so that a validator can restart without violating its voting constraints.
package storage

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-msgpack/codec"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/crypto"
)

var msgpackHandle = &codec.MsgpackHandle{}

// signatureRecord is the stored form of a QuorumSignature. Scheme selects the
// layout: ecdsa stores one signature per signer in the Signers/Sigs lists,
// bls12 stores a single aggregate in Sigs[0] with a participant bitfield.
type signatureRecord struct {
	Scheme       string
	Signers      []uint32
	Sigs         [][]byte
	Participants []byte
}

type ledgerInfoRecord struct {
	BlockID   []byte
	Round     uint64
	StateID   []byte
	Timestamp int64
}

type quorumCertRecord struct {
	Round       uint64
	ParentRound uint64
	BlockID     []byte
	LedgerInfo  ledgerInfoRecord
	Sig         *signatureRecord
}

type timeoutCertRecord struct {
	Round uint64
	Sig   *signatureRecord
}

type blockRecord struct {
	QC        quorumCertRecord
	Cmd       []byte
	Round     uint64
	Timestamp int64
	Author    uint32
	Sig       *signatureRecord
}

type livenessRecord struct {
	LastVotedRound uint64
	HighestQC      *quorumCertRecord
	HighestTC      *timeoutCertRecord
}

func marshal(v any) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

func unmarshal(b []byte, v any) error {
	return codec.NewDecoderBytes(b, msgpackHandle).Decode(v)
}

func signatureToRecord(sig libra.QuorumSignature) (*signatureRecord, error) {
	if sig == nil {
		return nil, nil
	}
	switch s := sig.(type) {
	case crypto.Multi[*crypto.ECDSASignature]:
		rec := &signatureRecord{Scheme: crypto.NameECDSA}
		ids := make([]libra.ID, 0, len(s))
		for id := range s {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			rec.Signers = append(rec.Signers, uint32(id))
			rec.Sigs = append(rec.Sigs, s[id].ToBytes())
		}
		return rec, nil
	case *crypto.BLS12AggregateSignature:
		return &signatureRecord{
			Scheme:       crypto.NameBLS12,
			Sigs:         [][]byte{s.ToBytes()},
			Participants: s.Bitfield().Bytes(),
		}, nil
	default:
		return nil, fmt.Errorf("cannot store signature of type %T", sig)
	}
}

func signatureFromRecord(rec *signatureRecord) (libra.QuorumSignature, error) {
	if rec == nil {
		return nil, nil
	}
	switch rec.Scheme {
	case crypto.NameECDSA:
		if len(rec.Signers) != len(rec.Sigs) {
			return nil, fmt.Errorf("malformed signature record: %d signers, %d signatures", len(rec.Signers), len(rec.Sigs))
		}
		sigs := make([]*crypto.ECDSASignature, 0, len(rec.Sigs))
		for i, raw := range rec.Sigs {
			sigs = append(sigs, crypto.RestoreECDSASignature(raw, libra.ID(rec.Signers[i])))
		}
		return crypto.Restore(sigs), nil
	case crypto.NameBLS12:
		if len(rec.Sigs) != 1 {
			return nil, fmt.Errorf("malformed signature record: %d aggregates", len(rec.Sigs))
		}
		return crypto.RestoreBLS12AggregateSignature(rec.Sigs[0], crypto.BitfieldFromBytes(rec.Participants))
	default:
		return nil, fmt.Errorf("unknown signature scheme: %q", rec.Scheme)
	}
}

func hashFromBytes(b []byte) (h libra.Hash) {
	copy(h[:], b)
	return h
}

func ledgerInfoToRecord(li libra.LedgerInfo) ledgerInfoRecord {
	blockID := li.BlockID()
	stateID := li.StateID()
	return ledgerInfoRecord{
		BlockID:   blockID[:],
		Round:     uint64(li.Round()),
		StateID:   stateID[:],
		Timestamp: li.Timestamp(),
	}
}

func ledgerInfoFromRecord(rec ledgerInfoRecord) libra.LedgerInfo {
	return libra.NewLedgerInfo(hashFromBytes(rec.BlockID), libra.Round(rec.Round), hashFromBytes(rec.StateID), rec.Timestamp)
}

func quorumCertToRecord(qc libra.QuorumCert) (quorumCertRecord, error) {
	sig, err := signatureToRecord(qc.Signature())
	if err != nil {
		return quorumCertRecord{}, err
	}
	blockID := qc.BlockID()
	return quorumCertRecord{
		Round:       uint64(qc.Round()),
		ParentRound: uint64(qc.ParentRound()),
		BlockID:     blockID[:],
		LedgerInfo:  ledgerInfoToRecord(qc.LedgerInfo()),
		Sig:         sig,
	}, nil
}

func quorumCertFromRecord(rec quorumCertRecord) (libra.QuorumCert, error) {
	sig, err := signatureFromRecord(rec.Sig)
	if err != nil {
		return libra.QuorumCert{}, err
	}
	return libra.NewQuorumCert(
		sig,
		libra.Round(rec.Round),
		libra.Round(rec.ParentRound),
		hashFromBytes(rec.BlockID),
		ledgerInfoFromRecord(rec.LedgerInfo),
	), nil
}

func timeoutCertToRecord(tc libra.TimeoutCert) (timeoutCertRecord, error) {
	sig, err := signatureToRecord(tc.Signature())
	if err != nil {
		return timeoutCertRecord{}, err
	}
	return timeoutCertRecord{Round: uint64(tc.Round()), Sig: sig}, nil
}

func timeoutCertFromRecord(rec timeoutCertRecord) (libra.TimeoutCert, error) {
	sig, err := signatureFromRecord(rec.Sig)
	if err != nil {
		return libra.TimeoutCert{}, err
	}
	return libra.NewTimeoutCert(sig, libra.Round(rec.Round)), nil
}

func blockToRecord(block *libra.Block) (blockRecord, error) {
	qc, err := quorumCertToRecord(block.QuorumCert())
	if err != nil {
		return blockRecord{}, err
	}
	sig, err := signatureToRecord(block.Signature())
	if err != nil {
		return blockRecord{}, err
	}
	return blockRecord{
		QC:        qc,
		Cmd:       []byte(block.Command()),
		Round:     uint64(block.Round()),
		Timestamp: block.Timestamp(),
		Author:    uint32(block.Author()),
		Sig:       sig,
	}, nil
}

func blockFromRecord(rec blockRecord) (*libra.Block, error) {
	qc, err := quorumCertFromRecord(rec.QC)
	if err != nil {
		return nil, err
	}
	block := libra.NewBlock(qc, libra.Command(rec.Cmd), libra.Round(rec.Round), rec.Timestamp, libra.ID(rec.Author))
	sig, err := signatureFromRecord(rec.Sig)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		block = block.WithSignature(sig)
	}
	return block, nil
}

func livenessToRecord(data libra.PersistentLivenessData) (livenessRecord, error) {
	rec := livenessRecord{LastVotedRound: uint64(data.LastVotedRound)}
	if data.HighestQC != nil {
		qc, err := quorumCertToRecord(*data.HighestQC)
		if err != nil {
			return livenessRecord{}, err
		}
		rec.HighestQC = &qc
	}
	if data.HighestTC != nil {
		tc, err := timeoutCertToRecord(*data.HighestTC)
		if err != nil {
			return livenessRecord{}, err
		}
		rec.HighestTC = &tc
	}
	return rec, nil
}

func livenessFromRecord(rec livenessRecord) (libra.PersistentLivenessData, error) {
	data := libra.PersistentLivenessData{LastVotedRound: libra.Round(rec.LastVotedRound)}
	if rec.HighestQC != nil {
		qc, err := quorumCertFromRecord(*rec.HighestQC)
		if err != nil {
			return libra.PersistentLivenessData{}, err
		}
		data.HighestQC = &qc
	}
	if rec.HighestTC != nil {
		tc, err := timeoutCertFromRecord(*rec.HighestTC)
		if err != nil {
			return libra.PersistentLivenessData{}, err
		}
		data.HighestTC = &tc
	}
	return data, nil
}

// assembleRecovery derives the recovery root from the saved state: the block
// committed by the highest saved ledger info becomes the root, and the saved
// blocks are returned in round order so that parents recover before children.
// With no committed block the root is nil and everything recovers onto genesis.
func assembleRecovery(
	blocks map[libra.Hash]*libra.Block,
	qcs map[libra.Hash]libra.QuorumCert,
	liveness libra.PersistentLivenessData,
) libra.RecoveryData {
	data := libra.RecoveryData{LivenessData: liveness}

	var rootID libra.Hash
	for _, qc := range qcs {
		li := qc.LedgerInfo()
		if li.BlockID() == (libra.Hash{}) {
			continue
		}
		if _, ok := blocks[li.BlockID()]; !ok {
			continue
		}
		if data.Root == nil || li.Round() > data.RootQC.LedgerInfo().Round() {
			data.Root = blocks[li.BlockID()]
			data.RootQC = qc
			rootID = li.BlockID()
		}
	}

	for id, block := range blocks {
		if id == rootID && data.Root != nil {
			continue
		}
		data.Blocks = append(data.Blocks, block)
	}
	sort.Slice(data.Blocks, func(i, j int) bool {
		return data.Blocks[i].Round() < data.Blocks[j].Round()
	})

	for _, qc := range qcs {
		if data.Root != nil && qc.Equals(data.RootQC) {
			continue
		}
		data.QuorumCerts = append(data.QuorumCerts, qc)
	}
	sort.Slice(data.QuorumCerts, func(i, j int) bool {
		return data.QuorumCerts[i].Round() < data.QuorumCerts[j].Round()
	})

	return data
}
