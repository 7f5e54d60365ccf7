package core

// Manifest is the bundle-internal descriptor embedded as the ".manifest"
// archive entry (not to be confused with the OCI registry manifest, which
// wraps a published bundle as an artifact — see package registry).
type Manifest struct {
	Revision      int
	Roots         []string
	EngineVersion string         // optional
	Metadata      map[string]any // free-form
}
