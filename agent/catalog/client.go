package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL       = "https://dummyjson.com"
	defaultSearchLimit   = 20
	maxResponseSizeBytes = 4 << 20
)

type Config struct {
	BaseURL string        `split_words:"true" default:"https://dummyjson.com"`
	Limit   int           `split_words:"true" default:"20"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client talks to a DummyJSON-compatible product REST API.
type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
}

var _ Catalog = (*Client)(nil)

type productDTO struct {
	ID                 int     `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	Price              float64 `json:"price"`
	Rating             float64 `json:"rating"`
	Stock              int     `json:"stock"`
	Brand              string  `json:"brand"`
	AvailabilityStatus string  `json:"availabilityStatus"`
	Thumbnail          string  `json:"thumbnail"`
}

type productListDTO struct {
	Products []productDTO `json:"products"`
	Total    int          `json:"total"`
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Search(ctx context.Context, q Query) ([]Product, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return []Product{}, nil
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("limit", strconv.Itoa(c.limit))

	var out productListDTO
	if err := c.getJSON(ctx, "/products/search?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	products := filterMaxPrice(toProducts(out.Products), q.MaxPrice)

	zerolog.Ctx(ctx).Debug().
		Str("query", text).
		Int("upstream_total", out.Total).
		Int("returned", len(products)).
		Msg("catalog search")
	return products, nil
}

func (c *Client) ByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return []Product{}, nil
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.limit))

	var out productListDTO
	path := "/products/category/" + url.PathEscape(strings.ToLower(category)) + "?" + params.Encode()
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return toProducts(out.Products), nil
}

func (c *Client) Get(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var out productDTO
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	p := out.toProduct()
	return &p, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func toProducts(in []productDTO) []Product {
	out := make([]Product, 0, len(in))
	for _, dto := range in {
		out = append(out, dto.toProduct())
	}
	return out
}

func (d productDTO) toProduct() Product {
	availability := strings.TrimSpace(d.AvailabilityStatus)
	if availability == "" {
		if d.Stock > 0 {
			availability = "In Stock"
		} else {
			availability = "Out of Stock"
		}
	}
	return Product{
		ID:           strconv.Itoa(d.ID),
		Name:         strings.TrimSpace(d.Title),
		Category:     d.Category,
		Price:        decimal.NewFromFloat(d.Price),
		Rating:       d.Rating,
		InStock:      d.Stock > 0,
		Stock:        d.Stock,
		Description:  d.Description,
		Brand:        d.Brand,
		Availability: availability,
		Thumbnail:    d.Thumbnail,
	}
}

// IsNotFound reports whether err means the product does not exist upstream.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
