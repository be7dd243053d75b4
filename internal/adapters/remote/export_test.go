package remote

import (
	"net/http"

	"go.trai.ch/forge/internal/core/domain"
)

// NewClientWithHTTP exports newClientWithHTTP for testing.
func NewClientWithHTTP(settings domain.Settings, client *http.Client) *Client {
	return newClientWithHTTP(settings, client)
}
