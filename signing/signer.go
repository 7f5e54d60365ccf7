package signing

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/eunomia-project/eunomia/core"
)

// BundleSigner signs bundles with a single Ed25519 private key, attributed
// to a caller-chosen key id.
type BundleSigner struct {
	private ed25519.PrivateKey
	keyID   string
}

// NewBundleSigner builds a signer from a key pair and the key id under
// which its public half will be looked up by verifiers.
func NewBundleSigner(keys *KeyPair, keyID string) *BundleSigner {
	return &BundleSigner{private: keys.Private, keyID: keyID}
}

// Sign computes the bundle's current canonical checksum and signs the
// UTF-8 bytes of its hex representation, never a pre-cached value — a
// bundle that is mutated after Checksum() was last read will still be
// signed over its up-to-date content.
func (s *BundleSigner) Sign(b *core.Bundle) *core.SignedBundle {
	checksum := b.Checksum()
	raw := ed25519.Sign(s.private, []byte(checksum))
	return &core.SignedBundle{
		Bundle: b,
		Signatures: []core.Signature{
			{
				KeyID:     s.keyID,
				Algorithm: "ed25519",
				Value:     base64.StdEncoding.EncodeToString(raw),
			},
		},
	}
}

// SignInto appends this signer's signature to an already-signed bundle,
// supporting multiple independent signatures over the same content.
func (s *BundleSigner) SignInto(sb *core.SignedBundle) {
	checksum := sb.Bundle.Checksum()
	raw := ed25519.Sign(s.private, []byte(checksum))
	sb.Signatures = append(sb.Signatures, core.Signature{
		KeyID:     s.keyID,
		Algorithm: "ed25519",
		Value:     base64.StdEncoding.EncodeToString(raw),
	})
}
