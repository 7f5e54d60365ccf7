package core

// Signature is a single detached signature record, as embedded in a
// SignedBundle or serialised standalone in the signature file format.
type Signature struct {
	KeyID     string `json:"keyid"`
	Algorithm string `json:"algorithm"` // always "ed25519"
	Value     string `json:"value"`     // base64
}

// SignedBundle pairs a Bundle with its detached signatures. A signed
// wrapper always carries at least one signature; an explicitly unsigned
// wrapper has an empty Signatures slice.
type SignedBundle struct {
	Bundle     *Bundle
	Signatures []Signature
}

// IsSigned reports whether at least one signature is present.
func (sb *SignedBundle) IsSigned() bool { return len(sb.Signatures) > 0 }
