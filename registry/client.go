package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eunomia-project/eunomia/core"
)

// Config configures a Client. Namespace is optional; when set the
// repository name becomes "<namespace>/<service>", otherwise just
// "<service>".
type Config struct {
	BaseURL        string
	Namespace      string
	Auth           AuthConfig
	RequestTimeout time.Duration
	MaxRetries     int
	RetryWait      time.Duration
}

// TryNewConfig validates cfg and applies defaults, the authoritative
// fallible constructor for Config.
func TryNewConfig(cfg Config) (Config, error) {
	if cfg.BaseURL == "" {
		return Config{}, errors.New("registry: BaseURL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		return Config{}, errors.New("registry: MaxRetries must be >= 0")
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	return cfg, nil
}

// Client speaks a subset of the OCI Distribution API: manifest and blob
// fetch/push, tag listing, and existence checks.
type Client struct {
	cfg  Config
	http *retryablehttp.Client
	log  *logrus.Entry
}

// NewClient builds a Client from cfg. Retries and backoff are delegated to
// retryablehttp rather than hand-rolled here.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWait
	rc.RetryWaitMax = cfg.RetryWait * 4
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = nil // structured logging goes through c.log instead

	return &Client{
		cfg:  cfg,
		http: rc,
		log:  logrus.WithField("component", "registry.client"),
	}
}

func (c *Client) repository(service string) string {
	if c.cfg.Namespace == "" {
		return service
	}
	return c.cfg.Namespace + "/" + service
}

func (c *Client) url(format string, args ...any) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, body []byte) (*http.Response, error) {
	var reader io.ReadSeeker
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequest(method, url, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "registry: building %s request to %q", method, url)
	}
	if err := c.cfg.Auth.Apply(req.Request); err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionFailedError{URL: url}
	}
	return resp, nil
}

// Exists implements HEAD /v2/<repo>/manifests/<ref>.
func (c *Client) Exists(service, ref string) (bool, error) {
	url := c.url("/v2/%s/manifests/%s", c.repository(service), ref)
	resp, err := c.do(http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, &HttpError{Status: resp.StatusCode, Message: "exists check failed"}
	}
	return true, nil
}

// ListTags implements GET /v2/<repo>/tags/list, treating a 404 as an empty
// tag list rather than an error.
func (c *Client) ListTags(service string) ([]string, error) {
	url := c.url("/v2/%s/tags/list", c.repository(service))
	resp, err := c.do(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, &HttpError{Status: resp.StatusCode, Message: "list tags failed"}
	}

	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "registry: decoding tags/list response")
	}
	return body.Tags, nil
}

// FetchManifest implements GET /v2/<repo>/manifests/<ref>.
func (c *Client) FetchManifest(service, ref string) (Manifest, error) {
	url := c.url("/v2/%s/manifests/%s", c.repository(service), ref)
	resp, err := c.do(http.MethodGet, url, nil)
	if err != nil {
		return Manifest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Manifest{}, &NotFoundError{Service: service, Version: ref}
	}
	if resp.StatusCode >= 300 {
		return Manifest{}, &HttpError{Status: resp.StatusCode, Message: "fetch manifest failed"}
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Manifest{}, errors.Wrap(err, "registry: decoding manifest")
	}
	return m, nil
}

// FetchBlob implements GET /v2/<repo>/blobs/<digest>.
func (c *Client) FetchBlob(service, dg string) ([]byte, error) {
	url := c.url("/v2/%s/blobs/%s", c.repository(service), dg)
	resp, err := c.do(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Service: service, Version: dg}
	}
	if resp.StatusCode >= 300 {
		return nil, &HttpError{Status: resp.StatusCode, Message: "fetch blob failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "registry: reading blob body")
	}
	return data, nil
}

// UploadBlob implements the two-step OCI upload: POST to start the upload,
// then PUT the content at the Location header plus "?digest=...".
func (c *Client) UploadBlob(service string, data []byte) (Descriptor, error) {
	startURL := c.url("/v2/%s/blobs/uploads/", c.repository(service))
	startResp, err := c.do(http.MethodPost, startURL, nil)
	if err != nil {
		return Descriptor{}, err
	}
	defer startResp.Body.Close()
	if startResp.StatusCode >= 300 {
		return Descriptor{}, &UploadFailedError{Message: fmt.Sprintf("upload init returned %d", startResp.StatusCode)}
	}
	location := startResp.Header.Get("Location")
	if location == "" {
		return Descriptor{}, &UploadFailedError{Message: "upload init response had no Location header"}
	}

	dg := Digest(data)
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	putURL := location + sep + "digest=" + dg
	if !strings.HasPrefix(putURL, "http") {
		putURL = c.url("%s", putURL)
	}

	putResp, err := c.do(http.MethodPut, putURL, data)
	if err != nil {
		return Descriptor{}, err
	}
	defer putResp.Body.Close()
	if putResp.StatusCode >= 300 {
		return Descriptor{}, &UploadFailedError{Message: fmt.Sprintf("upload put returned %d", putResp.StatusCode)}
	}

	return Descriptor{
		MediaType: MediaTypeBundle,
		Digest:    dg,
		Size:      int64(len(data)),
	}, nil
}

// PushManifest implements PUT /v2/<repo>/manifests/<tag>.
func (c *Client) PushManifest(service, tag string, m Manifest) error {
	body, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "registry: marshalling manifest")
	}
	url := c.url("/v2/%s/manifests/%s", c.repository(service), tag)
	resp, err := c.do(http.MethodPut, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &ManifestPushFailedError{Message: fmt.Sprintf("manifest push returned %d", resp.StatusCode)}
	}
	return nil
}

// Delete implements DELETE /v2/<repo>/manifests/<ref>.
func (c *Client) Delete(service, ref string) error {
	url := c.url("/v2/%s/manifests/%s", c.repository(service), ref)
	resp, err := c.do(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &HttpError{Status: resp.StatusCode, Message: "delete failed"}
	}
	return nil
}

// Fetch consults the cache, fetches the manifest and locates its bundle
// layer, fetches and validates the blob, parses it, then populates the
// cache on success. cache may be nil to skip caching entirely.
func (c *Client) Fetch(service, ref string, cache *Cache) (*core.Bundle, error) {
	if cache != nil {
		if b, ok := cache.Get(service, ref); ok {
			return b, nil
		}
	}

	m, err := c.FetchManifest(service, ref)
	if err != nil {
		return nil, err
	}
	layer, ok := m.BundleLayer()
	if !ok {
		return nil, &InvalidBundleError{Message: "manifest has no bundle layer"}
	}

	data, err := c.FetchBlob(service, layer.Digest)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != layer.Size {
		return nil, &ChecksumMismatchError{Expected: layer.Digest, Actual: Digest(data)}
	}
	if actual := Digest(data); actual != layer.Digest {
		return nil, &ChecksumMismatchError{Expected: layer.Digest, Actual: actual}
	}

	bundle, err := core.FromBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "registry: parsing fetched bundle")
	}

	if cache != nil {
		if err := cache.Put(bundle); err != nil {
			c.log.WithError(err).Warn("failed to populate cache after fetch")
		}
	}
	return bundle, nil
}

// Publish serialises the bundle, computes its digest, uploads the blob,
// builds and pushes a manifest under tag, and returns the bundle's digest.
func (c *Client) Publish(bundle *core.Bundle, tag string) (string, error) {
	data, err := bundle.ToBytes()
	if err != nil {
		return "", errors.Wrap(err, "registry: serialising bundle")
	}

	descriptor, err := c.UploadBlob(bundle.Service, data)
	if err != nil {
		return "", err
	}
	descriptor.Annotations = map[string]string{
		"org.opencontainers.image.title": fmt.Sprintf("%s-%s.bundle.tar.gz", bundle.Service, tag),
	}

	m := Manifest{
		SchemaVersion: 2,
		MediaType:     MediaTypeOCIManifest,
		ArtifactType:  ArtifactTypeBundle,
		Layers:        []Descriptor{descriptor},
		Annotations: map[string]string{
			"org.opencontainers.image.version": tag,
			"org.opencontainers.image.created": bundle.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}

	if err := c.PushManifest(bundle.Service, tag, m); err != nil {
		return "", err
	}
	return descriptor.Digest, nil
}
