package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	bls12 "github.com/kilic/bls12-381"
	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

// NameBLS12 identifies the BLS12-381 signature scheme in configuration files.
const NameBLS12 = "bls12"

const (
	// BLS12PrivateKeyFileType is the PEM type for a private key.
	BLS12PrivateKeyFileType = "BLS12-381 PRIVATE KEY"

	// BLS12PublicKeyFileType is the PEM type for a public key.
	BLS12PublicKeyFileType = "BLS12-381 PUBLIC KEY"
)

var (
	domain = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

	// the order r of G1
	curveOrder, _ = new(big.Int).SetString("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)
)

// BLS12PublicKey is a bls12-381 public key.
type BLS12PublicKey struct {
	p *bls12.PointG1
}

// ToBytes marshals the public key to a byte slice.
func (pub BLS12PublicKey) ToBytes() []byte {
	return bls12.NewG1().ToCompressed(pub.p)
}

// FromBytes unmarshals the public key from a byte slice.
func (pub *BLS12PublicKey) FromBytes(b []byte) error {
	var err error
	pub.p, err = bls12.NewG1().FromCompressed(b)
	if err != nil {
		return fmt.Errorf("bls12: failed to decompress public key: %w", err)
	}
	return nil
}

// BLS12PrivateKey is a bls12-381 private key.
type BLS12PrivateKey struct {
	p *big.Int
}

// ToBytes marshals the private key to a byte slice.
func (priv BLS12PrivateKey) ToBytes() []byte {
	return priv.p.Bytes()
}

// FromBytes unmarshals the private key from a byte slice.
func (priv *BLS12PrivateKey) FromBytes(b []byte) {
	priv.p = new(big.Int)
	priv.p.SetBytes(b)
}

// GenerateBLS12PrivateKey generates a new private key.
func GenerateBLS12PrivateKey() (*BLS12PrivateKey, error) {
	// the private key is uniformly random integer such that 0 <= pk < r
	pk, err := rand.Int(rand.Reader, curveOrder)
	if err != nil {
		return nil, fmt.Errorf("bls12: failed to generate private key: %w", err)
	}
	return &BLS12PrivateKey{
		p: pk,
	}, nil
}

// Public returns the public key associated with this private key.
func (priv *BLS12PrivateKey) Public() libra.PublicKey {
	p := &bls12.PointG1{}
	// The public key is the secret key multiplied by the generator G1
	return &BLS12PublicKey{p: bls12.NewG1().MulScalarBig(p, &bls12.G1One, priv.p)}
}

// BLS12AggregateSignature is a bls12-381 aggregate signature. The participants field contains the IDs of the
// replicas that participated in signature creation. This allows us to build an aggregated public key to verify
// the signature.
type BLS12AggregateSignature struct {
	sig          bls12.PointG2
	participants Bitfield // The ids of the replicas who submitted signatures.
}

// RestoreBLS12AggregateSignature restores an existing aggregate signature. It should not be used to create new
// aggregate signatures. Use Combine instead.
func RestoreBLS12AggregateSignature(sig []byte, participants Bitfield) (s *BLS12AggregateSignature, err error) {
	p, err := bls12.NewG2().FromCompressed(sig)
	if err != nil {
		return nil, fmt.Errorf("bls12: failed to restore aggregate signature: %w", err)
	}
	return &BLS12AggregateSignature{
		sig:          *p,
		participants: participants,
	}, nil
}

// ToBytes returns a byte representation of the aggregate signature.
func (agg *BLS12AggregateSignature) ToBytes() []byte {
	if agg == nil {
		return nil
	}
	return bls12.NewG2().ToCompressed(&agg.sig)
}

// Participants returns the IDs of replicas who participated in the threshold signature.
func (agg BLS12AggregateSignature) Participants() libra.IDSet {
	return &agg.participants
}

// Bitfield returns the bitmask.
func (agg BLS12AggregateSignature) Bitfield() Bitfield {
	return agg.participants
}

func firstParticipant(participants libra.IDSet) libra.ID {
	id := libra.ID(0)
	participants.RangeWhile(func(i libra.ID) bool {
		id = i
		return false
	})
	return id
}

// BLS12 implements the CryptoBase interface using BLS12-381 aggregate signatures.
type BLS12 struct {
	config modules.Configuration
	opts   *modules.Options
}

// NewBLS12 returns a new instance of the BLS12 crypto implementation.
func NewBLS12() *BLS12 {
	return &BLS12{}
}

// InitModule gives the module access to the validator set and options.
func (bls *BLS12) InitModule(mods *modules.Core) {
	mods.Get(
		&bls.config,
		&bls.opts,
	)
}

func (bls *BLS12) privateKey() *BLS12PrivateKey {
	return bls.opts.PrivateKey().(*BLS12PrivateKey)
}

func (bls *BLS12) publicKey(id libra.ID) (pubKey *BLS12PublicKey, err error) {
	validator, ok := bls.config.Validator(id)
	if !ok {
		return nil, fmt.Errorf("bls12: replica %d not found", id)
	}
	pubKey, ok = validator.PublicKey().(*BLS12PublicKey)
	if !ok {
		return nil, fmt.Errorf("bls12: unsupported public key type: %T", validator.PublicKey())
	}
	return pubKey, nil
}

func (bls *BLS12) subgroupCheck(point *bls12.PointG2) error {
	var p bls12.PointG2
	g2 := bls12.NewG2()
	g2.MulScalarBig(&p, point, curveOrder)
	if !g2.IsZero(&p) {
		return fmt.Errorf("bls12: point is not part of the subgroup")
	}
	return nil
}

func (bls *BLS12) coreSign(message []byte, domainTag []byte) (*bls12.PointG2, error) {
	pk := bls.privateKey()
	g2 := bls12.NewG2()
	point, err := g2.HashToCurve(message, domainTag)
	if err != nil {
		return nil, err
	}
	// multiply the point by the secret key, storing the result in the same point variable
	g2.MulScalarBig(point, point, pk.p)
	return point, nil
}

func (bls *BLS12) coreVerify(pubKey *BLS12PublicKey, message []byte, signature *bls12.PointG2, domainTag []byte) error {
	if err := bls.subgroupCheck(signature); err != nil {
		return err
	}
	g2 := bls12.NewG2()
	messagePoint, err := g2.HashToCurve(message, domainTag)
	if err != nil {
		return err
	}
	engine := bls12.NewEngine()
	engine.AddPairInv(&bls12.G1One, signature)
	engine.AddPair(pubKey.p, messagePoint)
	if !engine.Result().IsOne() {
		return fmt.Errorf("bls12: failed to verify message")
	}
	return nil
}

func (bls *BLS12) coreAggregateVerify(publicKeys []*BLS12PublicKey, messages [][]byte, signature *bls12.PointG2) error {
	n := len(publicKeys)
	if n != len(messages) {
		return fmt.Errorf("bls12: %d keys mismatch %d messages", n, len(messages))
	}
	if n < 1 {
		return fmt.Errorf("bls12: expected at least one message")
	}

	if err := bls.subgroupCheck(signature); err != nil {
		return err
	}

	engine := bls12.NewEngine()
	for i := 0; i < n; i++ {
		q, err := engine.G2.HashToCurve(messages[i], domain)
		if err != nil {
			return err
		}
		engine.AddPair(publicKeys[i].p, q)
	}

	engine.AddPairInv(&bls12.G1One, signature)
	if !engine.Result().IsOne() {
		return fmt.Errorf("bls12: failed to verify aggregated message")
	}
	return nil
}

func (bls *BLS12) aggregateVerify(publicKeys []*BLS12PublicKey, messages [][]byte, signature *bls12.PointG2) error {
	set := make(map[string]struct{})
	for _, m := range messages {
		set[string(m)] = struct{}{}
	}
	if len(messages) != len(set) {
		return fmt.Errorf("bls12: failed to verify aggregate: duplicate messages")
	}
	return bls.coreAggregateVerify(publicKeys, messages, signature)
}

func (bls *BLS12) fastAggregateVerify(publicKeys []*BLS12PublicKey, message []byte, signature *bls12.PointG2) error {
	engine := bls12.NewEngine()
	var aggregate bls12.PointG1
	for _, pk := range publicKeys {
		engine.G1.Add(&aggregate, &aggregate, pk.p)
	}
	return bls.coreVerify(&BLS12PublicKey{p: &aggregate}, message, signature, domain)
}

// Sign creates a cryptographic signature of the given message.
func (bls *BLS12) Sign(message []byte) (signature libra.QuorumSignature, err error) {
	p, err := bls.coreSign(message, domain)
	if err != nil {
		return nil, fmt.Errorf("bls12: coreSign failed: %w", err)
	}
	bf := Bitfield{}
	bf.Add(bls.opts.ID())
	return &BLS12AggregateSignature{sig: *p, participants: bf}, nil
}

// Combine combines multiple signatures into a single signature.
func (bls *BLS12) Combine(signatures ...libra.QuorumSignature) (combined libra.QuorumSignature, err error) {
	if len(signatures) < 2 {
		return nil, ErrCombineMultiple
	}

	g2 := bls12.NewG2()
	agg := bls12.PointG2{}
	var participants Bitfield
	for _, sig1 := range signatures {
		sig2, ok := sig1.(*BLS12AggregateSignature)
		if !ok {
			return nil, fmt.Errorf("bls12: cannot combine incompatible signature type %T (expected %T)", sig1, sig2)
		}
		sig2.participants.RangeWhile(func(id libra.ID) bool {
			if participants.Contains(id) {
				err = ErrCombineOverlap
				return false
			}
			participants.Add(id)
			return true
		})
		if err != nil {
			return nil, err
		}
		g2.Add(&agg, &agg, &sig2.sig)
	}
	return &BLS12AggregateSignature{sig: agg, participants: participants}, nil
}

// Verify verifies the given quorum signature against the message.
func (bls *BLS12) Verify(signature libra.QuorumSignature, message []byte) error {
	s, ok := signature.(*BLS12AggregateSignature)
	if !ok {
		return fmt.Errorf("bls12: cannot verify signature of incompatible type %T (expected %T)", signature, s)
	}

	n := s.Participants().Len()
	if n == 1 {
		pk, err := bls.publicKey(firstParticipant(s.Participants()))
		if err != nil {
			return err
		}
		return bls.coreVerify(pk, message, &s.sig, domain)
	}

	pks := make([]*BLS12PublicKey, 0, n)
	var errs error
	s.Participants().RangeWhile(func(id libra.ID) bool {
		pk, err := bls.publicKey(id)
		if err != nil {
			errs = errors.Join(errs, err)
			return false
		}
		pks = append(pks, pk)
		return true
	})
	if errs != nil {
		return fmt.Errorf("bls12: missing one or more public keys: %w", errs)
	}
	return bls.fastAggregateVerify(pks, message, &s.sig)
}

// BatchVerify verifies the given quorum signature against the batch of messages.
func (bls *BLS12) BatchVerify(signature libra.QuorumSignature, batch map[libra.ID][]byte) error {
	s, ok := signature.(*BLS12AggregateSignature)
	if !ok {
		return fmt.Errorf("bls12: cannot verify incompatible signature type %T (expected %T)", signature, s)
	}

	if s.Participants().Len() != len(batch) {
		return fmt.Errorf("bls12: signature mismatch: %d participants, expected: %d", len(batch), s.Participants().Len())
	}

	pks := make([]*BLS12PublicKey, 0, len(batch))
	msgs := make([][]byte, 0, len(batch))
	for id, msg := range batch {
		msgs = append(msgs, msg)
		pk, err := bls.publicKey(id)
		if err != nil {
			return err
		}
		pks = append(pks, pk)
	}

	if len(batch) == 1 {
		return bls.coreVerify(pks[0], msgs[0], &s.sig, domain)
	}
	return bls.aggregateVerify(pks, msgs, &s.sig)
}

var (
	_ libra.QuorumSignature = (*BLS12AggregateSignature)(nil)
	_ modules.CryptoBase    = (*BLS12)(nil)
	_ modules.Module        = (*BLS12)(nil)
)
