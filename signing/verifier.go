package signing

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/pkg/errors"

	"github.com/eunomia-project/eunomia/core"
)

// ErrInvalidSignature is returned when no known-key-id signature validly
// signs the bundle's current checksum.
var ErrInvalidSignature = errors.New("signing: invalid signature")

// ErrUnknownKeyID is returned by VerifyAll (not Verify) when every present
// signature's key id is unrecognised.
var ErrUnknownKeyID = errors.New("signing: unknown key id")

// BundleVerifier holds the set of public keys trusted to verify bundle
// signatures, indexed by key id.
type BundleVerifier struct {
	keys map[string]ed25519.PublicKey
}

// NewBundleVerifier builds a verifier with no trusted keys; use AddKey to
// register them.
func NewBundleVerifier() *BundleVerifier {
	return &BundleVerifier{keys: map[string]ed25519.PublicKey{}}
}

// AddKey registers a trusted public key under keyID.
func (v *BundleVerifier) AddKey(keyID string, pub ed25519.PublicKey) {
	v.keys[keyID] = pub
}

// Verify succeeds iff sb carries at least one signature whose key id is
// known and whose value validly signs the bundle's current canonical
// checksum. Any mutation of the bundle since signing changes the checksum
// and so invalidates every prior signature; Verify never uses a cached
// checksum.
func (v *BundleVerifier) Verify(sb *core.SignedBundle) error {
	// Verify only ever reports Ok or InvalidSignature; UnknownKeyId is
	// surfaced exclusively through VerifyAll.
	ids, _ := v.VerifyAll(sb)
	if len(ids) == 0 {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyAll returns the list of key ids whose signature validly signs the
// bundle's current checksum. An empty result (with a nil error) means there
// were no signatures, or at least one key id was recognised but none of
// the recognised signatures validated; ErrUnknownKeyID is
// returned only when no signature's key id is known at all.
func (v *BundleVerifier) VerifyAll(sb *core.SignedBundle) ([]string, error) {
	checksum := sb.Bundle.Checksum()
	var verified []string
	anyKnown := false

	for _, sig := range sb.Signatures {
		pub, ok := v.keys[sig.KeyID]
		if !ok {
			continue
		}
		anyKnown = true
		raw, err := base64.StdEncoding.DecodeString(sig.Value)
		if err != nil || len(raw) != ed25519.SignatureSize {
			continue
		}
		if ed25519.Verify(pub, []byte(checksum), raw) {
			verified = append(verified, sig.KeyID)
		}
	}

	if !anyKnown && len(sb.Signatures) > 0 {
		return nil, ErrUnknownKeyID
	}
	return verified, nil
}
