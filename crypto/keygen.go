package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kengeo/libra"
)

// GeneratePrivateKey returns a new private key for the named signature scheme.
func GeneratePrivateKey(scheme string) (libra.PrivateKey, error) {
	switch scheme {
	case NameECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case NameBLS12:
		return GenerateBLS12PrivateKey()
	default:
		return nil, fmt.Errorf("unknown signature scheme: %q", scheme)
	}
}

// WritePrivateKeyFile writes a private key to the specified file.
func WritePrivateKeyFile(key libra.PrivateKey, filePath string) (err error) {
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var b *pem.Block
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		var marshalled []byte
		marshalled, err = x509.MarshalECPrivateKey(k)
		if err != nil {
			return
		}
		b = &pem.Block{Type: ECDSAPrivateKeyFileType, Bytes: marshalled}
	case *BLS12PrivateKey:
		b = &pem.Block{Type: BLS12PrivateKeyFileType, Bytes: k.ToBytes()}
	default:
		return fmt.Errorf("unsupported private key type: %T", key)
	}

	err = pem.Encode(f, b)
	return
}

// WritePublicKeyFile writes a public key to the specified file.
func WritePublicKeyFile(key libra.PublicKey, filePath string) (err error) {
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	b, err := marshalPublicKey(key)
	if err != nil {
		return err
	}

	err = pem.Encode(f, b)
	return
}

func marshalPublicKey(key libra.PublicKey) (*pem.Block, error) {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		marshalled, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return nil, err
		}
		return &pem.Block{Type: ECDSAPublicKeyFileType, Bytes: marshalled}, nil
	case *BLS12PublicKey:
		return &pem.Block{Type: BLS12PublicKeyFileType, Bytes: k.ToBytes()}, nil
	default:
		return nil, fmt.Errorf("unsupported public key type: %T", key)
	}
}

// MarshalPublicKey returns the PEM encoding of a public key.
func MarshalPublicKey(key libra.PublicKey) ([]byte, error) {
	b, err := marshalPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(b), nil
}

// UnmarshalPublicKey parses a PEM encoded public key.
func UnmarshalPublicKey(data []byte) (libra.PublicKey, error) {
	b, _ := pem.Decode(data)
	if b == nil {
		return nil, errors.New("failed to decode PEM")
	}
	return parsePublicKey(b)
}

func parsePublicKey(b *pem.Block) (libra.PublicKey, error) {
	switch b.Type {
	case ECDSAPublicKeyFileType:
		k, err := x509.ParsePKIXPublicKey(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key: %w", err)
		}
		key, ok := k.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key was of wrong type: %T", k)
		}
		return key, nil
	case BLS12PublicKeyFileType:
		key := &BLS12PublicKey{}
		if err := key.FromBytes(b.Bytes); err != nil {
			return nil, err
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unknown PEM type: %q", b.Type)
	}
}

func readPemFile(file string) (b *pem.Block, err error) {
	d, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	b, _ = pem.Decode(d)
	if b == nil {
		return nil, fmt.Errorf("failed to decode PEM")
	}
	return b, nil
}

// ReadPrivateKeyFile reads a private key from the specified file.
func ReadPrivateKeyFile(keyFile string) (key libra.PrivateKey, err error) {
	b, err := readPemFile(keyFile)
	if err != nil {
		return nil, err
	}

	switch b.Type {
	case ECDSAPrivateKeyFileType:
		key, err = x509.ParseECPrivateKey(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key: %w", err)
		}
		return key, nil
	case BLS12PrivateKeyFileType:
		k := &BLS12PrivateKey{}
		k.FromBytes(b.Bytes)
		return k, nil
	default:
		return nil, fmt.Errorf("unknown PEM type: %q", b.Type)
	}
}

// ReadPublicKeyFile reads a public key from the specified file.
func ReadPublicKeyFile(keyFile string) (key libra.PublicKey, err error) {
	b, err := readPemFile(keyFile)
	if err != nil {
		return nil, err
	}
	return parsePublicKey(b)
}

// GenerateConfiguration creates keys for a configuration of 'n' replicas.
// The keys are saved in the directory specified by 'dest'.
// 'firstID' specifies the ID of the first replica in the configuration.
// 'pattern' describes the naming of key files. For example, '*.key' results
// in private keys with the name '1.key', if '1' is the starting ID.
func GenerateConfiguration(dest, scheme string, firstID, n int, pattern string) error {
	info, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		err = os.MkdirAll(dest, 0755)
		if err != nil {
			return fmt.Errorf("cannot create '%s' directory: %w", dest, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot Stat '%s': %w", dest, err)
	} else if !info.IsDir() {
		return fmt.Errorf("destination '%s' is not a directory", dest)
	}

	for i := 0; i < n; i++ {
		pk, err := GeneratePrivateKey(scheme)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		basePath := filepath.Join(dest, strings.ReplaceAll(pattern, "*", fmt.Sprintf("%d", firstID+i)))
		privKeyPath := basePath
		pubKeyPath := privKeyPath + ".pub"

		if err := WritePrivateKeyFile(pk, privKeyPath); err != nil {
			return fmt.Errorf("failed to write private key file: %w", err)
		}
		if err := WritePublicKeyFile(pk.Public(), pubKeyPath); err != nil {
			return fmt.Errorf("failed to write public key file: %w", err)
		}
	}
	return nil
}
