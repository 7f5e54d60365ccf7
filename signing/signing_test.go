package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

func testBundle(t *testing.T) *core.Bundle {
	t.Helper()
	b, err := core.NewBundle("checkout-api", "1.0.0")
	require.NoError(t, err)
	b.AddPolicy(core.NewPolicy("checkout.authz", "package checkout.authz\n\nallow { true }\n"))
	return b
}

// TestSignVerifyRoundTrip covers the sign-then-verify round trip property:
// a bundle signed with a key the verifier trusts always verifies.
func TestSignVerifyRoundTrip(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	signer := NewBundleSigner(keys, "prod-key-1")
	sb := signer.Sign(testBundle(t))

	verifier := NewBundleVerifier()
	verifier.AddKey("prod-key-1", keys.Public)

	require.NoError(t, verifier.Verify(sb))
	ids, err := verifier.VerifyAll(sb)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-key-1"}, ids)
}

func TestVerifyRejectsTamperedBundle(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	signer := NewBundleSigner(keys, "prod-key-1")
	sb := signer.Sign(testBundle(t))

	sb.Bundle.AddPolicy(core.NewPolicy("checkout.authz", "package checkout.authz\n\nallow { false }\n"))

	verifier := NewBundleVerifier()
	verifier.AddKey("prod-key-1", keys.Public)

	assert.ErrorIs(t, verifier.Verify(sb), ErrInvalidSignature)
}

func TestVerifyUnknownKeyID(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)
	signer := NewBundleSigner(keys, "unknown-key")
	sb := signer.Sign(testBundle(t))

	verifier := NewBundleVerifier()
	assert.ErrorIs(t, verifier.Verify(sb), ErrInvalidSignature)

	ids, err := verifier.VerifyAll(sb)
	assert.ErrorIs(t, err, ErrUnknownKeyID)
	assert.Empty(t, ids)
}

func TestSignIntoAppendsSignature(t *testing.T) {
	keysA, err := GenerateKeyPair()
	require.NoError(t, err)
	keysB, err := GenerateKeyPair()
	require.NoError(t, err)

	b := testBundle(t)
	sb := NewBundleSigner(keysA, "key-a").Sign(b)
	NewBundleSigner(keysB, "key-b").SignInto(sb)

	verifier := NewBundleVerifier()
	verifier.AddKey("key-a", keysA.Public)
	verifier.AddKey("key-b", keysB.Public)

	ids, err := verifier.VerifyAll(sb)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key-a", "key-b"}, ids)
}

func TestKeyPairFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	a, err := KeyPairFromSeed(seed)
	require.NoError(t, err)
	b, err := KeyPairFromSeed(seed)
	require.NoError(t, err)

	assert.Equal(t, a.PublicKeyBase64(), b.PublicKeyBase64())
}

func TestKeyPairFromSeedRejectsWrongLength(t *testing.T) {
	_, err := KeyPairFromSeed([]byte("too short"))
	assert.Error(t, err)
}
