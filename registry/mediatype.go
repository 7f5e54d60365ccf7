package registry

import (
	"crypto/sha256"
	"encoding/hex"

	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Media types recognised by the registry client.
const (
	MediaTypeOCIManifest = ocispec.MediaTypeImageManifest
	MediaTypeBundle      = "application/vnd.eunomia.policy.bundle.v1+tar.gz"
	MediaTypeManifestDoc = "application/vnd.eunomia.manifest.v1+json"
	MediaTypeSignature   = "application/vnd.eunomia.signature.v1+json"
	ArtifactTypeBundle   = MediaTypeBundle
)

// Digest computes the "sha256:<64 hex>" digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// ParseDigest validates that s is a well-formed "sha256:<64 hex>" digest,
// using opencontainers/go-digest's own grammar so the registry client and
// the OCI tooling it interoperates with agree on validity.
func ParseDigest(s string) (digest.Digest, error) {
	d := digest.Digest(s)
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// Descriptor is an OCI content descriptor: a pointer to a blob by digest,
// size, and media type. Digest is kept as the plain "sha256:<hex>" string
// form (rather than opencontainers/image-spec's own digest.Digest field
// type) since every call site in this package compares and stores digests
// as plain strings; ParseDigest above is the validation bridge into
// go-digest's stricter type when one is needed.
type Descriptor struct {
	MediaType   string            `json:"mediaType"`
	Digest      string            `json:"digest"`
	Size        int64             `json:"size"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Manifest is the subset of the OCI image manifest shape this registry
// produces and consumes. Its MediaType values are drawn from
// opencontainers/image-spec's own constants (MediaTypeOCIManifest above)
// so the documents this client pushes validate against the same schema
// versioning rules as ocispec.Manifest.
type Manifest struct {
	SchemaVersion int               `json:"schemaVersion"`
	MediaType     string            `json:"mediaType"`
	ArtifactType  string            `json:"artifactType,omitempty"`
	Layers        []Descriptor      `json:"layers"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// BundleLayer returns the manifest's single bundle-layer descriptor, or
// false if none is present (the InvalidBundle case of Client.Fetch).
func (m Manifest) BundleLayer() (Descriptor, bool) {
	for _, l := range m.Layers {
		if l.MediaType == MediaTypeBundle {
			return l, true
		}
	}
	return Descriptor{}, false
}
