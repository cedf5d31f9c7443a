// Package upstream fetches the live product collection from the remote
// catalog backend.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/timberline/internal/models"
)

// ErrDisabled is returned by Disabled.Products.
var ErrDisabled = errors.New("upstream: no backend configured")

const maxBody = 16 << 20

// Source supplies the live product collection.
type Source interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// Disabled is the Source used when no backend URL is configured.
type Disabled struct{}

// Products always fails with ErrDisabled.
func (Disabled) Products(context.Context) ([]models.Product, error) {
	return nil, ErrDisabled
}

// HTTP reads products from GET <baseURL>/products.
type HTTP struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTP creates a client for the backend at baseURL. token, if non-empty,
// is sent as a Bearer credential.
func NewHTTP(baseURL, token string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Products fetches and decodes the collection. The body may be a bare JSON
// array or an object with a "products" array.
func (c *HTTP) Products(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: requesting products: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("upstream: reading body: %w", err)
	}
	if len(data) > maxBody {
		return nil, fmt.Errorf("upstream: response exceeds %d bytes", maxBody)
	}
	return decode(data)
}

func decode(data []byte) ([]models.Product, error) {
	trimmed := bytes.TrimSpace(data)
	var products []models.Product
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("upstream: decoding response: %w", err)
		}
	} else {
		var envelope struct {
			Products []models.Product `json:"products"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("upstream: decoding response: %w", err)
		}
		products = envelope.Products
	}
	if products == nil {
		products = []models.Product{}
	}
	for i := range products {
		products[i] = products[i].Normalize()
	}
	return products, nil
}
