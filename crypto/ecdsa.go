package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

// NameECDSA identifies the ECDSA signature scheme in configuration files.
const NameECDSA = "ecdsa"

const (
	// ECDSAPrivateKeyFileType is the PEM type for a private key.
	ECDSAPrivateKeyFileType = "ECDSA PRIVATE KEY"
	// ECDSAPublicKeyFileType is the PEM type for a public key.
	ECDSAPublicKeyFileType = "ECDSA PUBLIC KEY"
)

// ecdsaASN1Sig represents the ASN.1 structure of an ECDSA signature
type ecdsaASN1Sig struct {
	R, S *big.Int
}

// ECDSASignature is an ECDSA signature.
type ECDSASignature struct {
	sig    []byte // ASN.1 encoded signature
	signer libra.ID
}

// RestoreECDSASignature restores an existing signature.
// It should not be used to create new signatures, use Sign instead.
func RestoreECDSASignature(sig []byte, signer libra.ID) *ECDSASignature {
	return &ECDSASignature{sig, signer}
}

// Signer returns the ID of the replica that generated the signature.
func (sig ECDSASignature) Signer() libra.ID {
	return sig.signer
}

// R returns the r value of the signature.
func (sig ECDSASignature) R() *big.Int {
	var asn1Sig ecdsaASN1Sig
	if _, err := asn1.Unmarshal(sig.sig, &asn1Sig); err != nil {
		panic(fmt.Sprintf("failed to decode ECDSA signature: %v", err))
	}
	return asn1Sig.R
}

// S returns the s value of the signature.
func (sig ECDSASignature) S() *big.Int {
	var asn1Sig ecdsaASN1Sig
	if _, err := asn1.Unmarshal(sig.sig, &asn1Sig); err != nil {
		panic(fmt.Sprintf("failed to decode ECDSA signature: %v", err))
	}
	return asn1Sig.S
}

// ToBytes returns a raw byte string representation of the signature.
func (sig ECDSASignature) ToBytes() []byte {
	return sig.sig
}

// ECDSA implements the CryptoBase interface using ECDSA signatures.
type ECDSA struct {
	config modules.Configuration
	opts   *modules.Options
}

// NewECDSA returns a new instance of the ECDSA crypto implementation.
func NewECDSA() *ECDSA {
	return &ECDSA{}
}

// InitModule gives the module access to the validator set and options.
func (ec *ECDSA) InitModule(mods *modules.Core) {
	mods.Get(
		&ec.config,
		&ec.opts,
	)
}

func (ec *ECDSA) privateKey() *ecdsa.PrivateKey {
	return ec.opts.PrivateKey().(*ecdsa.PrivateKey)
}

// Sign creates a cryptographic signature of the given message.
func (ec *ECDSA) Sign(message []byte) (signature libra.QuorumSignature, err error) {
	hash := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, ec.privateKey(), hash[:])
	if err != nil {
		return nil, fmt.Errorf("ecdsa: sign failed: %w", err)
	}
	return Multi[*ECDSASignature]{ec.opts.ID(): &ECDSASignature{
		sig:    sig,
		signer: ec.opts.ID(),
	}}, nil
}

// Combine combines multiple signatures into a single signature.
func (ec *ECDSA) Combine(signatures ...libra.QuorumSignature) (libra.QuorumSignature, error) {
	if len(signatures) < 2 {
		return nil, ErrCombineMultiple
	}

	ts := make(Multi[*ECDSASignature])
	for _, sig1 := range signatures {
		if sig2, ok := sig1.(Multi[*ECDSASignature]); ok {
			for id, s := range sig2 {
				if _, duplicate := ts[id]; duplicate {
					return nil, ErrCombineOverlap
				}
				ts[id] = s
			}
		} else {
			return nil, fmt.Errorf("ecdsa: cannot combine signature of incompatible type %T (expected %T)", sig1, sig2)
		}
	}
	return ts, nil
}

// Verify verifies the given quorum signature against the message.
func (ec *ECDSA) Verify(signature libra.QuorumSignature, message []byte) error {
	s, ok := signature.(Multi[*ECDSASignature])
	if !ok {
		return fmt.Errorf("ecdsa: cannot verify signature of incompatible type %T (expected %T)", signature, s)
	}
	n := signature.Participants().Len()
	if n == 0 {
		return fmt.Errorf("ecdsa: failed to verify: no participants")
	}

	results := make(chan error, n)
	hash := sha256.Sum256(message)
	for _, sig := range s {
		go func(sig *ECDSASignature, hash libra.Hash) {
			results <- ec.verifySingle(sig, hash)
		}(sig, hash)
	}
	var err error
	for range s {
		err = errors.Join(err, <-results)
	}
	return err
}

// BatchVerify verifies the given quorum signature against the batch of messages.
func (ec *ECDSA) BatchVerify(signature libra.QuorumSignature, batch map[libra.ID][]byte) (err error) {
	s, ok := signature.(Multi[*ECDSASignature])
	if !ok {
		return fmt.Errorf("ecdsa: cannot verify signature of incompatible type %T (expected %T)", signature, s)
	}
	n := signature.Participants().Len()
	if n == 0 {
		return fmt.Errorf("ecdsa: failed to verify batch: no participants")
	}

	results := make(chan error, n)
	set := make(map[libra.Hash]struct{})
	for id, sig := range s {
		message, ok := batch[id]
		if !ok {
			return fmt.Errorf("ecdsa: message not found")
		}
		hash := sha256.Sum256(message)
		set[hash] = struct{}{}
		go func(sig *ECDSASignature, hash libra.Hash) {
			results <- ec.verifySingle(sig, hash)
		}(sig, hash)
	}
	for range s {
		err = errors.Join(err, <-results)
	}
	if err != nil {
		return err
	}
	// valid if all partial signatures are valid and there are no duplicate messages
	if len(set) != len(batch) {
		return fmt.Errorf("ecdsa: invalid signature")
	}
	return nil
}

func (ec *ECDSA) verifySingle(sig *ECDSASignature, hash libra.Hash) error {
	validator, ok := ec.config.Validator(sig.Signer())
	if !ok {
		return fmt.Errorf("ecdsa: failed to verify signature from replica %d: unknown replica", sig.Signer())
	}
	pk := validator.PublicKey().(*ecdsa.PublicKey)
	if !ecdsa.VerifyASN1(pk, hash[:], sig.sig) {
		return fmt.Errorf("ecdsa: failed to verify signature from replica %d", sig.Signer())
	}
	return nil
}

var (
	_ libra.QuorumSignature = (Multi[*ECDSASignature])(nil)
	_ libra.IDSet           = (Multi[*ECDSASignature])(nil)
	_ Signature             = (*ECDSASignature)(nil)
	_ modules.CryptoBase    = (*ECDSA)(nil)
)
