package libra

import (
	"crypto/sha256"
	"fmt"
)

// Block contains a proposed command, metadata for the protocol, and the QC it extends.
// A block's parent is the block certified by its quorum certificate.
// Blocks are immutable once created; the block tree owns them after insertion.
type Block struct {
	// keep a copy of the hash to avoid hashing multiple times
	hash      Hash
	qc        QuorumCert
	cmd       Command
	round     Round
	timestamp int64
	author    ID
	signature QuorumSignature
}

// NewBlock creates a new Block.
func NewBlock(qc QuorumCert, cmd Command, round Round, timestamp int64, author ID) *Block {
	b := &Block{
		qc:        qc,
		cmd:       cmd,
		round:     round,
		timestamp: timestamp,
		author:    author,
	}
	// cache the hash immediately because it is too racy to do it in Hash()
	b.hash = sha256.Sum256(b.ToBytes())
	return b
}

func (b *Block) String() string {
	return fmt.Sprintf(
		"Block{ hash: %.6s, parent: %.6s, author: %d, round: %d, qc: %v }",
		b.hash.String(),
		b.Parent().String(),
		b.author,
		b.round,
		b.qc,
	)
}

// Hash returns the content hash identifying the block.
func (b *Block) Hash() Hash {
	return b.hash
}

// Parent returns the hash of the parent block, i.e. the block certified by the QC.
func (b *Block) Parent() Hash {
	return b.qc.BlockID()
}

// Author returns the id of the validator that proposed the block.
func (b *Block) Author() ID {
	return b.author
}

// Command returns the command carried by the block.
func (b *Block) Command() Command {
	return b.cmd
}

// QuorumCert returns the quorum certificate that the block extends.
func (b *Block) QuorumCert() QuorumCert {
	return b.qc
}

// Round returns the round in which the block was proposed.
func (b *Block) Round() Round {
	return b.round
}

// Timestamp returns the proposal timestamp in unix microseconds.
func (b *Block) Timestamp() int64 {
	return b.timestamp
}

// Signature returns the author's signature over the block, if attached.
func (b *Block) Signature() QuorumSignature {
	return b.signature
}

// WithSignature returns a copy of the block carrying the author's signature.
// The signature does not contribute to the block hash.
func (b *Block) WithSignature(signature QuorumSignature) *Block {
	signed := *b
	signed.signature = signature
	return &signed
}

// ToBytes returns the raw byte form of the Block, to be used for hashing and signing.
func (b *Block) ToBytes() []byte {
	buf := b.qc.ToBytes()
	buf = append(buf, b.round.ToBytes()...)
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[i] = byte(uint64(b.timestamp) >> (8 * i))
	}
	buf = append(buf, ts[:]...)
	buf = append(buf, b.author.ToBytes()...)
	return append(buf, []byte(b.cmd)...)
}
