// Package identity obtains short-lived, audience-scoped bearer tokens used to
// authenticate service-to-service calls.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyToken = errors.New("identity token is empty")

type Issuer interface {
	IdentityToken(ctx context.Context, audience string) (string, error)
}

// MetadataIssuer fetches Google-signed ID tokens from the instance metadata
// server.
type MetadataIssuer struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewMetadataIssuer(endpoint string, timeout time.Duration, logger *zap.Logger) *MetadataIssuer {
	return &MetadataIssuer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (i *MetadataIssuer) IdentityToken(ctx context.Context, audience string) (string, error) {
	u, err := url.Parse(i.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid metadata endpoint: %w", err)
	}
	q := u.Query()
	q.Set("audience", audience)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch identity token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read identity token: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server returned %d", resp.StatusCode)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}
