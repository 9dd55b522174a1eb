package modules

import (
	"github.com/kengeo/libra"
)

// CryptoBase provides the basic cryptographic methods needed to create, verify, and combine signatures.
type CryptoBase interface {
	// Sign creates a cryptographic signature of the given message.
	Sign(message []byte) (signature libra.QuorumSignature, err error)
	// Combine combines multiple signatures into a single signature.
	Combine(signatures ...libra.QuorumSignature) (signature libra.QuorumSignature, err error)
	// Verify verifies the given quorum signature against the message.
	Verify(signature libra.QuorumSignature, message []byte) error
	// BatchVerify verifies the given quorum signature against the batch of messages.
	BatchVerify(signature libra.QuorumSignature, batch map[libra.ID][]byte) error
}

// Crypto implements the methods required to create and verify votes and certificates.
// This is a higher level interface that is implemented by the crypto package itself.
type Crypto interface {
	CryptoBase
	// SignBlock attaches the local validator's signature to the block.
	SignBlock(block *libra.Block) (*libra.Block, error)
	// VerifyBlock verifies the author signature on a proposed block.
	VerifyBlock(block *libra.Block) error
	// CreateVote signs an endorsement of the given block.
	CreateVote(block *libra.Block, ledgerInfo libra.LedgerInfo) (libra.Vote, error)
	// VerifyVote verifies a single vote.
	VerifyVote(vote libra.Vote) error
	// CreateQuorumCert aggregates votes for the same block into a quorum certificate.
	CreateQuorumCert(votes []libra.Vote) (libra.QuorumCert, error)
	// VerifyQuorumCert verifies a quorum certificate.
	VerifyQuorumCert(qc libra.QuorumCert) error
	// CreateTimeoutCert creates a timeout certificate from a list of timeout messages.
	CreateTimeoutCert(round libra.Round, timeouts []libra.TimeoutMsg) (libra.TimeoutCert, error)
	// VerifyTimeoutCert verifies a timeout certificate.
	VerifyTimeoutCert(tc libra.TimeoutCert) error
}
