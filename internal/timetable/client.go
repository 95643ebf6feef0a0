package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

// Client answers live departure board and service detail queries
type Client interface {
	GetDepartureBoard(ctx context.Context, crs string, rows int, opts BoardOptions) (*Board, error)
	GetArrivalBoard(ctx context.Context, crs string, rows int, opts BoardOptions) (*Board, error)
	GetServiceDetails(ctx context.Context, serviceID string) (*ServiceDetails, error)
	GetNextDepartures(ctx context.Context, crs string, destinations []string, opts BoardOptions) (*DeparturesBoard, error)
	GetFastestDepartures(ctx context.Context, crs string, destinations []string, opts BoardOptions) (*DeparturesBoard, error)
}

// ErrServiceNotFound is returned when the upstream no longer knows a service id
var ErrServiceNotFound = errors.New("service not found")

// HTTPClient talks to a JSON departure-board proxy (Huxley-style REST API)
type HTTPClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
	services    gcache.Cache
}

// Options configures an HTTPClient
type Options struct {
	BaseURL         string
	AccessToken     string
	Timeout         time.Duration
	ServiceCacheTTL time.Duration
	ServiceCacheMax int
}

// NewHTTPClient creates a new timetable client
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ServiceCacheMax <= 0 {
		opts.ServiceCacheMax = 512
	}
	if opts.ServiceCacheTTL <= 0 {
		opts.ServiceCacheTTL = time.Minute
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		accessToken: opts.AccessToken,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		services: gcache.New(opts.ServiceCacheMax).
			LRU().
			Expiration(opts.ServiceCacheTTL).
			Build(),
	}
}

// GetDepartureBoard fetches up to rows departures from crs
func (c *HTTPClient) GetDepartureBoard(ctx context.Context, crs string, rows int, opts BoardOptions) (*Board, error) {
	var board Board
	if err := c.getJSON(ctx, c.boardPath("departures", crs, rows, opts), opts, &board); err != nil {
		return nil, fmt.Errorf("failed to fetch departures for %s: %w", crs, err)
	}
	return &board, nil
}

// GetArrivalBoard fetches up to rows arrivals at crs
func (c *HTTPClient) GetArrivalBoard(ctx context.Context, crs string, rows int, opts BoardOptions) (*Board, error) {
	var board Board
	if err := c.getJSON(ctx, c.boardPath("arrivals", crs, rows, opts), opts, &board); err != nil {
		return nil, fmt.Errorf("failed to fetch arrivals for %s: %w", crs, err)
	}
	return &board, nil
}

// GetServiceDetails fetches the calling pattern of a service, served from cache when fresh
func (c *HTTPClient) GetServiceDetails(ctx context.Context, serviceID string) (*ServiceDetails, error) {
	if cached, err := c.services.Get(serviceID); err == nil {
		return cached.(*ServiceDetails), nil
	}

	var details ServiceDetails
	path := "/service/" + url.PathEscape(serviceID)
	if err := c.getJSON(ctx, path, BoardOptions{}, &details); err != nil {
		return nil, fmt.Errorf("failed to fetch service %s: %w", serviceID, err)
	}

	if err := c.services.Set(serviceID, &details); err != nil {
		log.Printf("[TimetableClient] Failed to cache service %s: %v", serviceID, err)
	}
	return &details, nil
}

// GetNextDepartures returns the next departure from crs to each destination
func (c *HTTPClient) GetNextDepartures(ctx context.Context, crs string, destinations []string, opts BoardOptions) (*DeparturesBoard, error) {
	return c.departures(ctx, "next", crs, destinations, opts)
}

// GetFastestDepartures returns the earliest-arriving departure from crs to each destination
func (c *HTTPClient) GetFastestDepartures(ctx context.Context, crs string, destinations []string, opts BoardOptions) (*DeparturesBoard, error) {
	return c.departures(ctx, "fastest", crs, destinations, opts)
}

func (c *HTTPClient) departures(ctx context.Context, kind, crs string, destinations []string, opts BoardOptions) (*DeparturesBoard, error) {
	if len(destinations) == 0 {
		return nil, fmt.Errorf("%s departures from %s: at least one destination required", kind, crs)
	}

	path := fmt.Sprintf("/%s/%s/to/%s", kind, url.PathEscape(crs), url.PathEscape(strings.Join(destinations, ",")))
	var board DeparturesBoard
	if err := c.getJSON(ctx, path, opts, &board); err != nil {
		return nil, fmt.Errorf("failed to fetch %s departures for %s: %w", kind, crs, err)
	}
	return &board, nil
}

func (c *HTTPClient) boardPath(kind, crs string, rows int, opts BoardOptions) string {
	opts = opts.Normalized()
	if opts.FilterCRS != "" {
		return fmt.Sprintf("/%s/%s/%s/%s/%d", kind, url.PathEscape(crs), opts.FilterType, url.PathEscape(opts.FilterCRS), rows)
	}
	return fmt.Sprintf("/%s/%s/%d", kind, url.PathEscape(crs), rows)
}

// getJSON performs a GET against the proxy and decodes the JSON body into out
func (c *HTTPClient) getJSON(ctx context.Context, path string, opts BoardOptions, out interface{}) error {
	opts = opts.Normalized()

	q := url.Values{}
	if c.accessToken != "" {
		q.Set("accessToken", c.accessToken)
	}
	if opts.TimeOffset != 0 {
		q.Set("timeOffset", strconv.Itoa(opts.TimeOffset))
	}
	if opts.TimeWindow != 0 {
		q.Set("timeWindow", strconv.Itoa(opts.TimeWindow))
	}

	endpoint := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrServiceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("timetable returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
