package libra

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ID uniquely identifies a validator in the validator set.
type ID uint32

// ToBytes returns the ID as bytes.
func (id ID) ToBytes() []byte {
	var idBytes [4]byte
	binary.LittleEndian.PutUint32(idBytes[:], uint32(id))
	return idBytes[:]
}

// Round is a number that uniquely identifies one attempt at proposing and
// certifying a block. Exactly one leader is designated per round.
type Round uint64

// ToBytes returns the round as bytes.
func (r Round) ToBytes() []byte {
	var roundBytes [8]byte
	binary.LittleEndian.PutUint64(roundBytes[:], uint64(r))
	return roundBytes[:]
}

// Hash is a SHA256 hash. It identifies blocks by their content.
type Hash [32]byte

func (h Hash) String() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

// Command is an opaque batch of transactions to be ordered by consensus.
//
// The string type is used because it is immutable and can hold arbitrary bytes of any length.
type Command string

// ToBytes is an object that can be converted into bytes for the purposes of hashing, etc.
type ToBytes interface {
	// ToBytes returns the object as bytes.
	ToBytes() []byte
}

// IDSet implements a set of validator IDs. It is used to show which validators participated in some event.
type IDSet interface {
	// Add adds an ID to the set.
	Add(id ID)
	// Contains returns true if the set contains the ID.
	Contains(id ID) bool
	// ForEach calls f for each ID in the set.
	ForEach(f func(ID))
	// RangeWhile calls f for each ID in the set until f returns false.
	RangeWhile(f func(ID) bool)
	// Len returns the number of entries in the set.
	Len() int
}

// idSetMap implements IDSet using a map.
type idSetMap map[ID]struct{}

// NewIDSet returns a new IDSet using the default implementation.
func NewIDSet() IDSet {
	return make(idSetMap)
}

// Add adds an ID to the set.
func (s idSetMap) Add(id ID) {
	s[id] = struct{}{}
}

// Contains returns true if the set contains the given ID.
func (s idSetMap) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// ForEach calls f for each ID in the set.
func (s idSetMap) ForEach(f func(ID)) {
	for id := range s {
		f(id)
	}
}

// RangeWhile calls f for each ID in the set until f returns false.
func (s idSetMap) RangeWhile(f func(ID) bool) {
	for id := range s {
		if !f(id) {
			break
		}
	}
}

// Len returns the number of entries in the set.
func (s idSetMap) Len() int {
	return len(s)
}

func (s idSetMap) String() string {
	return IDSetToString(s)
}

// IDSetToString formats an IDSet as a string.
func IDSetToString(set IDSet) string {
	var sb strings.Builder
	sb.WriteString("[ ")
	set.ForEach(func(i ID) {
		sb.WriteString(strconv.Itoa(int(i)))
		sb.WriteString(" ")
	})
	sb.WriteString("]")
	return sb.String()
}

// PublicKey is the public part of a validator's key pair.
type PublicKey = crypto.PublicKey

// PrivateKey is the private part of a validator's key pair.
type PrivateKey interface {
	// Public returns the public key associated with this private key.
	Public() PublicKey
}

// QuorumSignature is a signature that is only valid when it contains the
// signatures of validators holding a quorum of voting power.
type QuorumSignature interface {
	ToBytes
	// Participants returns the IDs of validators who participated in the signature.
	Participants() IDSet
}

// StateComputeResult is the output of speculatively executing a block's payload.
type StateComputeResult struct {
	// StateID identifies the state that results from applying the block's payload.
	StateID Hash
	// Version is the number of transactions in the ledger up to and including this block.
	Version uint64
}

// ToBytes returns a byte representation of the state compute result.
func (res StateComputeResult) ToBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, res.Version)
	return append(res.StateID[:], b...)
}

// LedgerInfo describes what committing a block would finalize:
// the block itself, its round, and the state it transitions the ledger into.
// It is the payload that votes and quorum certificates sign.
type LedgerInfo struct {
	blockID   Hash
	round     Round
	stateID   Hash
	timestamp int64
}

// NewLedgerInfo creates a new LedgerInfo from the given values.
func NewLedgerInfo(blockID Hash, round Round, stateID Hash, timestamp int64) LedgerInfo {
	return LedgerInfo{blockID, round, stateID, timestamp}
}

// BlockID returns the id of the block that this ledger info would commit.
func (li LedgerInfo) BlockID() Hash {
	return li.blockID
}

// Round returns the round of the block that this ledger info would commit.
func (li LedgerInfo) Round() Round {
	return li.round
}

// StateID returns the id of the state that committing would finalize.
func (li LedgerInfo) StateID() Hash {
	return li.stateID
}

// Timestamp returns the proposal timestamp of the committed block, in unix microseconds.
func (li LedgerInfo) Timestamp() int64 {
	return li.timestamp
}

// ToBytes returns a byte representation of the ledger info.
func (li LedgerInfo) ToBytes() []byte {
	b := li.blockID[:]
	b = append(b, li.round.ToBytes()...)
	b = append(b, li.stateID[:]...)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(li.timestamp))
	return append(b, ts[:]...)
}

func (li LedgerInfo) String() string {
	return fmt.Sprintf("LedgerInfo{ block: %.6s, round: %d }", li.blockID, li.round)
}

// Vote is a single validator's signed endorsement of a block.
// At most one vote per round is ever produced by a correct validator;
// this is enforced by the safety rules, not here.
type Vote struct {
	author      ID
	blockID     Hash
	round       Round
	parentRound Round
	ledgerInfo  LedgerInfo
	signature   QuorumSignature
}

// NewVote creates a new Vote from the given values.
func NewVote(author ID, blockID Hash, round, parentRound Round, ledgerInfo LedgerInfo, signature QuorumSignature) Vote {
	return Vote{author, blockID, round, parentRound, ledgerInfo, signature}
}

// Author returns the ID of the validator that cast the vote.
func (v Vote) Author() ID {
	return v.author
}

// BlockID returns the id of the block that was voted for.
func (v Vote) BlockID() Hash {
	return v.blockID
}

// Round returns the round of the block that was voted for.
func (v Vote) Round() Round {
	return v.round
}

// ParentRound returns the round certified by the voted block's parent QC.
func (v Vote) ParentRound() Round {
	return v.parentRound
}

// LedgerInfo returns the ledger info fragment carried by the vote.
func (v Vote) LedgerInfo() LedgerInfo {
	return v.ledgerInfo
}

// Signature returns the vote signature.
func (v Vote) Signature() QuorumSignature {
	return v.signature
}

// SignedBytes returns the bytes that the vote signature covers.
func (v Vote) SignedBytes() []byte {
	b := v.blockID[:]
	b = append(b, v.round.ToBytes()...)
	b = append(b, v.parentRound.ToBytes()...)
	return append(b, v.ledgerInfo.ToBytes()...)
}

// ToBytes returns a byte representation of the vote.
func (v Vote) ToBytes() []byte {
	b := v.author.ToBytes()
	b = append(b, v.SignedBytes()...)
	if v.signature != nil {
		b = append(b, v.signature.ToBytes()...)
	}
	return b
}

func (v Vote) String() string {
	return fmt.Sprintf("Vote{ block: %.6s, round: %d, author: %d }", v.blockID, v.round, v.author)
}

// QuorumCert (QC) is proof that validators holding a quorum of voting power
// voted for a specific block at a specific round. It is the sole unit of
// "this block is safe to build upon".
type QuorumCert struct {
	signature   QuorumSignature
	round       Round
	parentRound Round
	blockID     Hash
	ledgerInfo  LedgerInfo
}

// NewQuorumCert creates a new quorum cert from the given values.
func NewQuorumCert(signature QuorumSignature, round, parentRound Round, blockID Hash, ledgerInfo LedgerInfo) QuorumCert {
	return QuorumCert{signature, round, parentRound, blockID, ledgerInfo}
}

// Signature returns the aggregated signature.
func (qc QuorumCert) Signature() QuorumSignature {
	return qc.signature
}

// BlockID returns the id of the certified block.
func (qc QuorumCert) BlockID() Hash {
	return qc.blockID
}

// Round returns the round of the certified block.
func (qc QuorumCert) Round() Round {
	return qc.round
}

// ParentRound returns the round certified by the certified block's own parent QC.
func (qc QuorumCert) ParentRound() Round {
	return qc.parentRound
}

// SignedBytes returns the bytes that each vote aggregated into this QC signed.
func (qc QuorumCert) SignedBytes() []byte {
	b := qc.blockID[:]
	b = append(b, qc.round.ToBytes()...)
	b = append(b, qc.parentRound.ToBytes()...)
	return append(b, qc.ledgerInfo.ToBytes()...)
}

// LedgerInfo returns the ledger info that the votes in this QC signed.
func (qc QuorumCert) LedgerInfo() LedgerInfo {
	return qc.ledgerInfo
}

// ToBytes returns a byte representation of the quorum certificate.
func (qc QuorumCert) ToBytes() []byte {
	b := qc.round.ToBytes()
	b = append(b, qc.parentRound.ToBytes()...)
	b = append(b, qc.blockID[:]...)
	b = append(b, qc.ledgerInfo.ToBytes()...)
	if qc.signature != nil {
		b = append(b, qc.signature.ToBytes()...)
	}
	return b
}

// Equals returns true if the other QC equals this QC.
func (qc QuorumCert) Equals(other QuorumCert) bool {
	if qc.round != other.round {
		return false
	}
	if qc.blockID != other.blockID {
		return false
	}
	if qc.signature == nil || other.signature == nil {
		return qc.signature == other.signature
	}
	return bytes.Equal(qc.signature.ToBytes(), other.signature.ToBytes())
}

func (qc QuorumCert) String() string {
	var sb strings.Builder
	if qc.signature != nil {
		writeParticipants(&sb, qc.signature.Participants())
	}
	return fmt.Sprintf("QC{ block: %.6s, round: %d, IDs: [ %s] }", qc.blockID, qc.round, &sb)
}

// TimeoutCert (TC) is a certificate created by a quorum of timeout messages.
// It licenses advancing to the next round without a certified block.
type TimeoutCert struct {
	signature QuorumSignature
	round     Round
}

// NewTimeoutCert returns a new timeout certificate.
func NewTimeoutCert(signature QuorumSignature, round Round) TimeoutCert {
	return TimeoutCert{signature, round}
}

// Signature returns the aggregated signature.
func (tc TimeoutCert) Signature() QuorumSignature {
	return tc.signature
}

// Round returns the round that timed out.
func (tc TimeoutCert) Round() Round {
	return tc.round
}

// ToBytes returns a byte representation of the timeout certificate.
func (tc TimeoutCert) ToBytes() []byte {
	b := tc.round.ToBytes()
	if tc.signature != nil {
		b = append(b, tc.signature.ToBytes()...)
	}
	return b
}

func (tc TimeoutCert) String() string {
	var sb strings.Builder
	if tc.signature != nil {
		writeParticipants(&sb, tc.signature.Participants())
	}
	return fmt.Sprintf("TC{ round: %d, IDs: [ %s] }", tc.round, &sb)
}

// SyncInfo bundles the highest known QC, the highest known commit QC,
// and optionally the highest known TC. It is exchanged between validators
// to reconcile divergent views after a timeout or missed message.
type SyncInfo struct {
	qc       *QuorumCert
	commitQC *QuorumCert
	tc       *TimeoutCert
}

// NewSyncInfo returns a new SyncInfo struct.
func NewSyncInfo() SyncInfo {
	return SyncInfo{}
}

// WithQC returns a copy of the SyncInfo struct with the given QC.
func (si SyncInfo) WithQC(qc QuorumCert) SyncInfo {
	si.qc = new(QuorumCert)
	*si.qc = qc
	return si
}

// WithCommitQC returns a copy of the SyncInfo struct with the given commit QC.
func (si SyncInfo) WithCommitQC(qc QuorumCert) SyncInfo {
	si.commitQC = new(QuorumCert)
	*si.commitQC = qc
	return si
}

// WithTC returns a copy of the SyncInfo struct with the given TC.
func (si SyncInfo) WithTC(tc TimeoutCert) SyncInfo {
	si.tc = new(TimeoutCert)
	*si.tc = tc
	return si
}

// QC returns the quorum certificate, if present.
func (si SyncInfo) QC() (_ QuorumCert, _ bool) {
	if si.qc != nil {
		return *si.qc, true
	}
	return
}

// CommitQC returns the commit quorum certificate, if present.
func (si SyncInfo) CommitQC() (_ QuorumCert, _ bool) {
	if si.commitQC != nil {
		return *si.commitQC, true
	}
	return
}

// TC returns the timeout certificate, if present.
func (si SyncInfo) TC() (_ TimeoutCert, _ bool) {
	if si.tc != nil {
		return *si.tc, true
	}
	return
}

func (si SyncInfo) String() string {
	var sb strings.Builder
	sb.WriteString("{ ")
	if si.qc != nil {
		fmt.Fprintf(&sb, "%s ", si.qc)
	}
	if si.commitQC != nil {
		fmt.Fprintf(&sb, "commit: %s ", si.commitQC)
	}
	if si.tc != nil {
		fmt.Fprintf(&sb, "%s ", si.tc)
	}
	sb.WriteRune('}')
	return sb.String()
}

func writeParticipants(sb *strings.Builder, participants IDSet) {
	participants.ForEach(func(id ID) {
		fmt.Fprintf(sb, "%d ", id)
	})
}
