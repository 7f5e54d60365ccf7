package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ChecksumAlgorithm is the single fixed digest algorithm used for bundle
// checksums.
const ChecksumAlgorithm = "sha256"

// Bundle is a compiled, distributable artifact: a set of policies plus data
// files and a manifest. A Bundle exclusively owns its Policies and
// DataFiles maps — callers that need an independent copy should use Clone.
type Bundle struct {
	Service     string
	Version     string
	Revision    string // optional source revision id, e.g. a git commit
	CreatedAt   time.Time
	Policies    map[string]*Policy // package name -> policy
	DataFiles   map[string]string  // data-file path -> content
	Manifest    Manifest

	// Signature and SigningKeyID mirror the single most recent signature
	// applied to this bundle, for convenience; the authoritative,
	// possibly-multi-signature record is SignedBundle.Signatures.
	Signature    string // optional, base64
	SigningKeyID string // optional
}

// NewBundle constructs an empty Bundle. Per spec, a Bundle with zero
// policies is invalid; callers must AddPolicy before Validate/use. version
// must be non-empty.
func NewBundle(service, version string) (*Bundle, error) {
	if version == "" {
		return nil, ErrMissingVersion
	}
	return &Bundle{
		Service:   service,
		Version:   version,
		CreatedAt: time.Now().UTC(),
		Policies:  map[string]*Policy{},
		DataFiles: map[string]string{},
		Manifest: Manifest{
			Roots:    []string{normalizeRoot(service)},
			Metadata: map[string]any{},
		},
	}, nil
}

// normalizeRoot normalises a service name into a root document name:
// dashes become underscores.
func normalizeRoot(service string) string {
	return strings.ReplaceAll(service, "-", "_")
}

// AddPolicy registers a policy under its package name, overwriting any
// existing policy with the same package.
func (b *Bundle) AddPolicy(p *Policy) {
	b.Policies[p.Package] = p
}

// AddDataFile registers a data file's content under its archive-relative
// path.
func (b *Bundle) AddDataFile(path, content string) {
	b.DataFiles[path] = content
}

// Validate checks the bundle's structural invariants: non-empty version
// (already enforced by NewBundle) and at least one policy.
func (b *Bundle) Validate() error {
	if b.Version == "" {
		return ErrMissingVersion
	}
	if len(b.Policies) == 0 {
		return ErrEmptyBundle
	}
	return nil
}

// FileName returns "<service>-v<version>.bundle.tar.gz".
func (b *Bundle) FileName() string {
	return fmt.Sprintf("%s-v%s.bundle.tar.gz", b.Service, strings.TrimPrefix(b.Version, "v"))
}

// Checksum computes the canonical SHA-256 checksum: for each policy sorted
// ascending by package name, the intra-bundle path, a
// newline, the source, a newline; then for each data file sorted ascending
// by path, the path, a newline, content, a newline. The result is stable
// regardless of map iteration order or insertion order.
func (b *Bundle) Checksum() string {
	h := sha256.New()

	pkgs := make([]string, 0, len(b.Policies))
	for pkg := range b.Policies {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	for _, pkg := range pkgs {
		p := b.Policies[pkg]
		h.Write([]byte(p.IntraBundlePath()))
		h.Write([]byte("\n"))
		h.Write([]byte(p.Source))
		h.Write([]byte("\n"))
	}

	paths := make([]string, 0, len(b.DataFiles))
	for path := range b.DataFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		h.Write([]byte(path))
		h.Write([]byte("\n"))
		h.Write([]byte(b.DataFiles[path]))
		h.Write([]byte("\n"))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ManifestDocument builds the JSON-serialisable manifest document embedded
// under the archive's ".manifest" entry, carrying the service, version,
// revision, creation time and checksum alongside the caller-supplied
// manifest fields.
func (b *Bundle) ManifestDocument() map[string]any {
	eunomia := map[string]any{
		"service":      b.Service,
		"version":      b.Version,
		"revision":     b.Manifest.Revision,
		"created_time": b.CreatedAt.Format(time.RFC3339),
	}
	if b.Revision != "" {
		eunomia["git_commit"] = b.Revision
	}

	doc := map[string]any{
		"revision": b.Manifest.Revision,
		"roots":    b.Manifest.Roots,
		"metadata": map[string]any{
			"eunomia": eunomia,
			"checksum": map[string]any{
				"algorithm": ChecksumAlgorithm,
				"value":     b.Checksum(),
			},
		},
	}
	if b.Manifest.EngineVersion != "" {
		doc["engine_version"] = b.Manifest.EngineVersion
	}
	for k, v := range b.Manifest.Metadata {
		doc["metadata"].(map[string]any)[k] = v
	}
	return doc
}

// Clone returns a deep-enough copy of b so that mutating the result never
// aliases b's Policies or DataFiles maps (callers holding a cached or
// registered Bundle never share mutable state with one another).
func (b *Bundle) Clone() *Bundle {
	out := *b
	out.Policies = make(map[string]*Policy, len(b.Policies))
	for k, v := range b.Policies {
		p := *v
		out.Policies[k] = &p
	}
	out.DataFiles = make(map[string]string, len(b.DataFiles))
	for k, v := range b.DataFiles {
		out.DataFiles[k] = v
	}
	out.Manifest.Roots = append([]string(nil), b.Manifest.Roots...)
	out.Manifest.Metadata = make(map[string]any, len(b.Manifest.Metadata))
	for k, v := range b.Manifest.Metadata {
		out.Manifest.Metadata[k] = v
	}
	return &out
}
