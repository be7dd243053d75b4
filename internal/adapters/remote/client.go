// Package remote talks to package repositories over HTTP.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.trai.ch/forge/internal/adapters/manifest"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Fetcher        = (*Client)(nil)
	_ ports.ManifestSource = (*Client)(nil)
	_ ports.VersionSource  = (*Client)(nil)
)

// maxVersionFileSize bounds the latest.txt body.
const maxVersionFileSize = 4 << 10

// Client implements the remote ports with plain HTTP GET requests.
type Client struct {
	settings   domain.Settings
	httpClient *http.Client
}

// New creates a Client for the repositories named in settings.
func New(settings domain.Settings) *Client {
	timeout := settings.HTTPTimeout
	if timeout <= 0 {
		timeout = domain.DefaultHTTPTimeout
	}
	return newClientWithHTTP(settings, &http.Client{Timeout: timeout})
}

// newClientWithHTTP creates a Client with a custom http client (used for testing).
func newClientWithHTTP(settings domain.Settings, client *http.Client) *Client {
	return &Client{settings: settings, httpClient: client}
}

// Fetch downloads url into dest. On failure dest does not exist.
func (c *Client) Fetch(ctx context.Context, url, dest string) (err error) {
	body, err := c.get(ctx, url)
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	defer body.Close() //nolint:errcheck // Response body

	//nolint:gosec // Destination is a temp path chosen by the caller
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", dest)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, cerr), "path", dest)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrFetchFailed, err), "url", url)
	}
	return nil
}

// Dependencies downloads and parses the manifest of id. The manifest is
// staged in a temp file that is removed on every path.
func (c *Client) Dependencies(ctx context.Context, id domain.PackageID) ([]domain.PackageID, error) {
	url := c.settings.ManifestURL(id)

	tmp, err := os.CreateTemp("", "forge-manifest-*.json")
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "package", id.String())
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup

	if err := c.Fetch(ctx, url, tmpPath); err != nil {
		return nil, manifestError(err, id, url)
	}
	deps, err := manifest.Parse(tmpPath)
	if err != nil {
		return nil, manifestError(err, id, url)
	}
	return deps, nil
}

func manifestError(err error, id domain.PackageID, url string) error {
	return zerr.With(zerr.With(fmt.Errorf("%w: %w", domain.ErrManifestFetch, err), "package", id.String()), "url", url)
}

// Latest returns the first line of the package's latest.txt.
func (c *Client) Latest(ctx context.Context, name string) (string, error) {
	url := c.settings.LatestVersionURL(name)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck // Response body

	line, err := bufio.NewReader(io.LimitReader(body, maxVersionFileSize)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", zerr.With(fmt.Errorf("%w: %w", domain.ErrFetchFailed, err), "url", url)
	}
	version := strings.TrimSpace(line)
	if version == "" {
		return "", zerr.With(fmt.Errorf("%w: empty version file", domain.ErrFetchFailed), "url", url)
	}
	return version, nil
}

// get issues a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrFetchFailed, err), "url", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrFetchFailed, err), "url", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		statusErr := zerr.With(fmt.Errorf("%w: %s", domain.ErrFetchFailed, resp.Status), "url", url)
		return nil, zerr.With(statusErr, "status_code", resp.StatusCode)
	}
	return resp.Body, nil
}
