// Package signing implements Ed25519 signing and verification of bundle
// checksums.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// KeyPair holds an Ed25519 public/private key pair.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a new key pair from OS entropy.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "signing: generating ed25519 key pair")
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// KeyPairFromSeed derives a key pair from a 32-byte seed.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("signing: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{Public: pub, Private: priv}, nil
}

// KeyPairFromBase64Seed derives a key pair from a base64-encoded 32-byte
// seed.
func KeyPairFromBase64Seed(encoded string) (*KeyPair, error) {
	seed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "signing: decoding base64 seed")
	}
	return KeyPairFromSeed(seed)
}

// PublicKeyBytes and PublicKeyBase64 export the public key in raw and
// base64 form.
func (k *KeyPair) PublicKeyBytes() []byte { return []byte(k.Public) }
func (k *KeyPair) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(k.Public)
}

// SeedBase64 exports the private key's 32-byte seed, base64-encoded.
func (k *KeyPair) SeedBase64() string {
	return base64.StdEncoding.EncodeToString(k.Private.Seed())
}

// PublicKeyFromBase64 parses a base64-encoded 32-byte Ed25519 public key.
func PublicKeyFromBase64(encoded string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "signing: decoding base64 public key")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("signing: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
