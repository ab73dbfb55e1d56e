// Package lookup fetches raw CT-e XML from the Meu Danfe API by access key.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// KeyLength is the number of digits in a CT-e access key.
const KeyLength = 44

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 20 << 20

var (
	// ErrInvalidKey is returned for keys that are not exactly 44 digits.
	ErrInvalidKey = errors.New("a chave de acesso deve conter exatamente 44 dígitos")

	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrNotFound is returned when the upstream has no document for the key.
	ErrNotFound = errors.New("documento não encontrado")

	// ErrMalformedResponse is returned when the upstream body is not a CT-e.
	ErrMalformedResponse = errors.New("a API retornou dados, mas não parece ser um XML de CT-e válido")
)

// APIError is a non-2xx upstream response other than 404.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("erro na API (%d)", e.Status)
	}
	return fmt.Sprintf("erro na API (%d): %s", e.Status, e.Body)
}

// Client talks to the Meu Danfe API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a Client with its own http.Client bounded by timeout.
// A zero timeout means no limit.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger.With().Str("component", "cte_lookup").Logger(),
	}
}

// ValidateKey trims key and checks it is 44 digits.
func ValidateKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) != KeyLength {
		return "", ErrInvalidKey
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// FetchXML returns the raw XML of the CT-e identified by key.
func (c *Client) FetchXML(ctx context.Context, key string) ([]byte, error) {
	key, err := ValidateKey(key)
	if err != nil {
		return nil, err
	}
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/cte/xml/" + key
	q := u.Query()
	q.Set("api_key", c.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	c.Logger.Info().Str("key", key).Msg("Fetching CT-e")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falha de conexão: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.Logger.Warn().Str("key", key).Int("status", resp.StatusCode).Msg("Lookup failed")
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if !strings.Contains(string(body), "<infCte") {
		return nil, ErrMalformedResponse
	}
	return body, nil
}
