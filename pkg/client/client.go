package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/agentmart/pkg/api"
)

const defaultUserAgent = "agentmart-go-client"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// SearchParams is the query of a listing search. Zero values are omitted
// and the server applies its defaults.
type SearchParams struct {
	Query     string
	Category  string
	Tags      []string
	Language  string
	Framework string
	Featured  *bool
	Sort      string
	Limit     int
	Offset    int
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("q", p.Query)
	set("category", p.Category)
	if len(p.Tags) > 0 {
		v.Set("tags", strings.Join(p.Tags, ","))
	}
	set("language", p.Language)
	set("framework", p.Framework)
	if p.Featured != nil {
		v.Set("featured", strconv.FormatBool(*p.Featured))
	}
	set("sort", p.Sort)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	return v
}

// Client calls the agentmart HTTP API. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	timeout   time.Duration
	obs       *observer
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{userAgent: defaultUserAgent}
	for _, o := range opts {
		o.apply(cfg)
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("agentmart: invalid base url %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		base:      base,
		http:      hc,
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		timeout:   cfg.timeout,
		obs:       obs,
	}, nil
}

// Search fetches one page of listings. A degraded page is returned
// without error; check SearchResponse.Degraded.
func (c *Client) Search(ctx context.Context, p SearchParams) (*api.SearchResponse, error) {
	var resp api.SearchResponse
	if err := c.get(ctx, "search", "/v1/listings/search", p.values(), &resp, nil); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []api.Listing{}
	}
	return &resp, nil
}

// Facets fetches value counts for every facet dimension.
func (c *Client) Facets(ctx context.Context) (*api.FacetsResponse, error) {
	var resp api.FacetsResponse
	if err := c.get(ctx, "facets", "/v1/listings/facets", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the server health report. A degraded server answers 503
// with a report; that report is returned together with an error matching
// ErrUnavailable.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.get(ctx, "health", "/health", nil, &resp, []int{http.StatusServiceUnavailable})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return &resp, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "server " + resp.Status}
	}
	return &resp, nil
}

// get performs a GET and decodes a JSON body into out. Statuses listed in
// decodeAlso are decoded like a 200.
func (c *Client) get(
	ctx context.Context, op, path string, query url.Values, out any, decodeAlso []int,
) (err error) {
	start := time.Now()
	requestID := uuid.NewString()
	degraded := false
	defer func() { c.obs.observe(op, requestID, start, degraded, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := *c.base
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	degraded = res.Header.Get(api.DegradedHeader) == "true"

	if res.StatusCode != http.StatusOK && !slices.Contains(decodeAlso, res.StatusCode) {
		return decodeAPIError(res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var e api.ErrorResponse
	if json.Unmarshal(body, &e) == nil && (e.Code != "" || e.Message != "") {
		apiErr.Code = e.Code
		apiErr.Message = e.Message
	}
	return apiErr
}

// IsTimeout reports whether err is a request that ran out of time.
func IsTimeout(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Timeout()
}
