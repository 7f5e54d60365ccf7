package core

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// epoch is the fixed modification time stamped on every tar entry so that
// identical bundle content always serialises to identical bytes.
var epoch = time.Unix(0, 0)

const manifestEntryName = ".manifest"

// ToBytes serialises the bundle as a gzip-compressed tar archive: a
// ".manifest" entry holding the JSON manifest document, one "<path>.rego"
// entry per policy, and one entry per data file at its own relative path.
// Entries are written in sorted order and carry mode 0644 and mtime 0, so
// the result is bytewise identical across rebuilds of unchanged content.
func (b *Bundle) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "core: creating gzip writer")
	}
	gz.ModTime = epoch
	tw := tar.NewWriter(gz)

	manifestJSON, err := json.Marshal(b.ManifestDocument())
	if err != nil {
		return nil, errors.Wrap(err, "core: marshalling manifest")
	}
	if err := writeEntry(tw, manifestEntryName, manifestJSON); err != nil {
		return nil, err
	}

	pkgs := make([]string, 0, len(b.Policies))
	for pkg := range b.Policies {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	for _, pkg := range pkgs {
		p := b.Policies[pkg]
		if err := writeEntry(tw, p.IntraBundlePath(), []byte(p.Source)); err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(b.DataFiles))
	for path := range b.DataFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := writeEntry(tw, path, []byte(b.DataFiles[path])); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, errors.Wrap(err, "core: closing tar writer")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "core: closing gzip writer")
	}
	return buf.Bytes(), nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "core: writing tar header for %q", name)
	}
	if _, err := tw.Write(content); err != nil {
		return errors.Wrapf(err, "core: writing tar entry %q", name)
	}
	return nil
}

// FromBytes parses a gzip-compressed tar archive produced by ToBytes back
// into a Bundle. A missing ".manifest" entry is fatal.
func FromBytes(data []byte) (*Bundle, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "core: opening gzip reader")
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	b := &Bundle{
		Policies:  map[string]*Policy{},
		DataFiles: map[string]string{},
	}
	var manifestDoc map[string]any
	haveManifest := false

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "core: reading tar entry")
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "core: reading content of %q", hdr.Name)
		}

		switch {
		case hdr.Name == manifestEntryName:
			if err := json.Unmarshal(content, &manifestDoc); err != nil {
				return nil, errors.Wrap(err, "core: parsing manifest document")
			}
			haveManifest = true
		case len(hdr.Name) > 5 && hdr.Name[len(hdr.Name)-5:] == ".rego":
			pkg := pathToPackage(hdr.Name)
			b.Policies[pkg] = &Policy{
				Package:  pkg,
				Source:   string(content),
				FilePath: hdr.Name,
			}
		default:
			b.DataFiles[hdr.Name] = string(content)
		}
	}

	if !haveManifest {
		return nil, &BundleError{Message: "archive missing required \".manifest\" entry"}
	}

	if err := populateFromManifest(b, manifestDoc); err != nil {
		return nil, err
	}
	return b, nil
}

func pathToPackage(path string) string {
	trimmed := path
	if len(trimmed) > 5 {
		trimmed = trimmed[:len(trimmed)-5]
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			trimmed = trimmed[:i] + "." + trimmed[i+1:]
		}
	}
	return trimmed
}

func populateFromManifest(b *Bundle, doc map[string]any) error {
	metadata, _ := doc["metadata"].(map[string]any)
	eunomia, _ := metadata["eunomia"].(map[string]any)
	if eunomia == nil {
		return &BundleError{Message: "manifest missing metadata.eunomia"}
	}
	if s, ok := eunomia["service"].(string); ok {
		b.Service = s
	}
	if v, ok := eunomia["version"].(string); ok {
		b.Version = v
	}
	if gc, ok := eunomia["git_commit"].(string); ok {
		b.Revision = gc
	}
	if ct, ok := eunomia["created_time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ct); err == nil {
			b.CreatedAt = t
		}
	}
	if rev, ok := doc["revision"]; ok {
		switch v := rev.(type) {
		case float64:
			b.Manifest.Revision = int(v)
		case int:
			b.Manifest.Revision = v
		}
	}
	if roots, ok := doc["roots"].([]any); ok {
		for _, r := range roots {
			if s, ok := r.(string); ok {
				b.Manifest.Roots = append(b.Manifest.Roots, s)
			}
		}
	}
	if ev, ok := doc["engine_version"].(string); ok {
		b.Manifest.EngineVersion = ev
	}
	b.Manifest.Metadata = map[string]any{}
	for k, v := range metadata {
		if k == "eunomia" || k == "checksum" {
			continue
		}
		b.Manifest.Metadata[k] = v
	}
	return nil
}
