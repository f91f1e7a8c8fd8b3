package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/log"
)

const (
	// DefaultRegistry is used for references that do not name a host.
	DefaultRegistry = "registry-1.docker.io"

	dockerAuthURL = "https://auth.docker.io/token?service=registry.docker.io&scope=repository:%s:pull"

	// Docker's pre-OCI media types, still served by most registries.
	mediaTypeDockerManifest = "application/vnd.docker.distribution.manifest.v2+json"
	mediaTypeDockerList     = "application/vnd.docker.distribution.manifest.list.v2+json"

	userAgent = "cubo/0.1.0"
)

var manifestAccept = strings.Join([]string{
	mediaTypeDockerManifest,
	mediaTypeDockerList,
	ocispec.MediaTypeImageManifest,
	ocispec.MediaTypeImageIndex,
}, ", ")

// Reference is a pull target normalized into registry host, repository,
// and tag.
type Reference struct {
	Registry   string
	Repository string
	Tag        string
}

// ParseReference normalizes an image reference for pulling. Single
// segment repositories on Docker Hub get the library/ prefix; a suffix
// after the last colon is only a tag when it contains no slash.
func ParseReference(ref string) (Reference, error) {
	if ref == "" {
		return Reference{}, errdefs.InvalidConfiguration("empty image reference")
	}

	name := ref
	tag := "latest"
	if idx := strings.LastIndex(ref, ":"); idx >= 0 && !strings.Contains(ref[idx+1:], "/") {
		name = ref[:idx]
		tag = ref[idx+1:]
	}
	if name == "" || tag == "" {
		return Reference{}, errdefs.InvalidConfiguration("Invalid image reference '%s'", ref)
	}

	host, rest, found := strings.Cut(name, "/")
	if found && (strings.Contains(host, ".") || strings.Contains(host, ":") || host == "localhost") {
		return Reference{Registry: host, Repository: rest, Tag: tag}, nil
	}

	repository := name
	if !strings.Contains(name, "/") {
		repository = "library/" + name
	}
	return Reference{Registry: DefaultRegistry, Repository: repository, Tag: tag}, nil
}

// Client pulls images from OCI-Distribution v2 registries into the
// local image store.
type Client struct {
	images *image.Store
	httpc  *http.Client

	// PlainHTTP contacts registries over http instead of https. Used
	// for local registries and tests.
	PlainHTTP bool
}

// NewClient returns a pull client backed by the given image store.
func NewClient(images *image.Store) *Client {
	return &Client{
		images: images,
		httpc: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *Client) baseURL(registry string) string {
	scheme := "https"
	if c.PlainHTTP {
		scheme = "http"
	}
	return scheme + "://" + registry
}

// Pull fetches the manifest, config, and layers for ref and records
// them in the image store. Pulling a reference the store already has is
// a no-op.
func (c *Client) Pull(ctx context.Context, imageRef string) error {
	logger := log.WithComponent("registry")
	logger.Info().Str("image", imageRef).Msg("pulling image")

	if c.images.HasImage(imageRef) {
		logger.Info().Str("image", imageRef).Msg("image already exists locally")
		return nil
	}

	ref, err := ParseReference(imageRef)
	if err != nil {
		return err
	}
	logger.Debug().
		Str("registry", ref.Registry).
		Str("repository", ref.Repository).
		Str("tag", ref.Tag).
		Msg("resolved reference")

	token, err := c.token(ctx, ref)
	if err != nil {
		return err
	}

	manifest, err := c.fetchManifest(ctx, ref, token)
	if err != nil {
		return err
	}
	logger.Info().Int("layers", len(manifest.Layers)).Msg("manifest fetched")

	configData, err := c.fetchBlob(ctx, ref, manifest.Config.Digest, token)
	if err != nil {
		return err
	}
	var ociImage ocispec.Image
	if err := json.Unmarshal(configData, &ociImage); err != nil {
		return errdefs.System("Failed to parse image config: %v", err)
	}

	tempDir, err := os.MkdirTemp("", "cubo-pull-")
	if err != nil {
		return errdefs.System("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	safeName := strings.NewReplacer(":", "_", "/", "_").Replace(imageRef)

	var layerPaths []string
	for idx, layerDesc := range manifest.Layers {
		logger.Info().
			Int("layer", idx+1).
			Int("total", len(manifest.Layers)).
			Str("media_type", layerDesc.MediaType).
			Msg("downloading layer")

		layerData, err := c.fetchBlob(ctx, ref, layerDesc.Digest, token)
		if err != nil {
			return err
		}

		layerFile := filepath.Join(tempDir, fmt.Sprintf("layer_%d.blob", idx))
		if err := os.WriteFile(layerFile, layerData, 0o644); err != nil {
			return errdefs.System("Failed to write layer: %v", err)
		}

		finalLayer := layerFile
		if isGzipped(layerData) {
			finalLayer = filepath.Join(tempDir, fmt.Sprintf("layer_%d.tar", idx))
			if err := decompressGzip(layerFile, finalLayer); err != nil {
				return err
			}
		}

		blobPath := filepath.Join(c.images.BlobsDir(), fmt.Sprintf("%s_%d.tar", safeName, idx))
		if err := os.MkdirAll(filepath.Dir(blobPath), 0o755); err != nil {
			return errdefs.System("Failed to create blobs directory: %v", err)
		}
		if err := copyFile(finalLayer, blobPath); err != nil {
			return errdefs.System("Failed to copy layer: %v", err)
		}
		layerPaths = append(layerPaths, blobPath)
	}

	if err := c.images.SaveManifest(&image.Manifest{
		Reference: imageRef,
		Layers:    layerPaths,
		Config:    convertImageConfig(ociImage.Config),
	}); err != nil {
		return err
	}

	logger.Info().Str("image", imageRef).Msg("successfully pulled and stored image")
	return nil
}

// token fetches an anonymous bearer token. Only Docker Hub is
// authenticated; other registries are contacted without Authorization.
func (c *Client) token(ctx context.Context, ref Reference) (string, error) {
	if ref.Registry != DefaultRegistry {
		return "", nil
	}

	authURL := fmt.Sprintf(dockerAuthURL, ref.Repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", errdefs.System("Failed to build auth request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errdefs.System("Failed to get auth token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errdefs.System("Failed to get auth token: HTTP %s", resp.Status)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errdefs.System("Failed to parse token response: %v", err)
	}
	return tokenResp.Token, nil
}

// fetchManifest retrieves the manifest for the tag, following a
// manifest list or OCI index to the linux/amd64 entry.
func (c *Client) fetchManifest(ctx context.Context, ref Reference, token string) (*ocispec.Manifest, error) {
	manifestURL := fmt.Sprintf("%s/v2/%s/manifests/%s", c.baseURL(ref.Registry), ref.Repository, ref.Tag)
	contentType, body, err := c.get(ctx, manifestURL, token, manifestAccept)
	if err != nil {
		return nil, err
	}

	if strings.Contains(contentType, "manifest.list") || strings.Contains(contentType, "image.index") {
		log.WithComponent("registry").Debug().Msg("received manifest list, selecting platform manifest")

		var index ocispec.Index
		if err := json.Unmarshal(body, &index); err != nil {
			return nil, errdefs.System("Failed to parse manifest list: %v", err)
		}

		selected, err := selectPlatform(index.Manifests)
		if err != nil {
			return nil, err
		}
		return c.fetchManifestByDigest(ctx, ref, selected.Digest, token)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, errdefs.System("Failed to parse manifest: %v", err)
	}
	return &manifest, nil
}

// selectPlatform picks the linux/amd64 entry, falling back to the first.
func selectPlatform(manifests []ocispec.Descriptor) (*ocispec.Descriptor, error) {
	if len(manifests) == 0 {
		return nil, errdefs.System("No suitable manifest found in list")
	}
	for i := range manifests {
		p := manifests[i].Platform
		if p != nil && p.OS == "linux" && p.Architecture == "amd64" {
			return &manifests[i], nil
		}
	}
	return &manifests[0], nil
}

func (c *Client) fetchManifestByDigest(ctx context.Context, ref Reference, dgst digest.Digest, token string) (*ocispec.Manifest, error) {
	manifestURL := fmt.Sprintf("%s/v2/%s/manifests/%s", c.baseURL(ref.Registry), ref.Repository, dgst)
	accept := mediaTypeDockerManifest + ", " + ocispec.MediaTypeImageManifest

	_, body, err := c.get(ctx, manifestURL, token, accept)
	if err != nil {
		return nil, err
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, errdefs.System("Failed to parse manifest: %v", err)
	}
	return &manifest, nil
}

func (c *Client) fetchBlob(ctx context.Context, ref Reference, dgst digest.Digest, token string) ([]byte, error) {
	if err := dgst.Validate(); err != nil {
		return nil, errdefs.System("Invalid blob digest %q: %v", dgst, err)
	}
	blobURL := fmt.Sprintf("%s/v2/%s/blobs/%s", c.baseURL(ref.Registry), ref.Repository, dgst)
	_, body, err := c.get(ctx, blobURL, token, "")
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL, token, accept string) (contentType string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, errdefs.System("Failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", nil, errdefs.System("Failed to fetch %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, errdefs.System("Failed to fetch %s: HTTP %s", rawURL, resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, errdefs.System("Failed to read response: %v", err)
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// convertImageConfig maps an OCI image config into the store's form.
// ExposedPorts is a set in the OCI config; keys are emitted sorted.
func convertImageConfig(cfg ocispec.ImageConfig) image.Config {
	var exposed []string
	for port := range cfg.ExposedPorts {
		exposed = append(exposed, port)
	}
	sort.Strings(exposed)

	return image.Config{
		Cmd:          cfg.Cmd,
		Env:          cfg.Env,
		WorkingDir:   cfg.WorkingDir,
		ExposedPorts: exposed,
	}
}

// isGzipped sniffs the gzip magic bytes.
func isGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func decompressGzip(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return errdefs.System("Failed to open gzip file: %v", err)
	}
	defer in.Close()

	decoder, err := gzip.NewReader(in)
	if err != nil {
		return errdefs.System("Failed to read gzip header: %v", err)
	}
	defer decoder.Close()

	out, err := os.Create(output)
	if err != nil {
		return errdefs.System("Failed to create output file: %v", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, decoder); err != nil {
		return errdefs.System("Failed to decompress gzip: %v", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
