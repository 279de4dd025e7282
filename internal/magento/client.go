package magento

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

	"go.uber.org/zap"

	"github.com/pmbright/synclet/internal/util"
)

// TimeLayout is the timestamp format the API accepts in query filters.
const TimeLayout = "2006-01-02T15:04:05"

const actionOrders = "Orders"

// FilterKind selects which order timestamp the API filters on.
type FilterKind int

const (
	// FilterCreated matches orders created at or after Since. Used by
	// initial syncs.
	FilterCreated FilterKind = iota
	// FilterUpdated matches orders last touched at or after Since. Used by
	// incremental syncs so edits to old orders are picked up.
	FilterUpdated
)

func (k FilterKind) String() string {
	if k == FilterUpdated {
		return "updated"
	}
	return "created"
}

func (k FilterKind) queryParam() string {
	if k == FilterUpdated {
		return "LastUpdatedTime"
	}
	return "OrderCreatedTime"
}

// Filter is the time window lower bound for a page request.
type Filter struct {
	Kind  FilterKind
	Since time.Time
}

// Page is one page of the remote result set. A page shorter than the
// requested size is the last one.
type Page struct {
	Orders  []RawOrder
	Version string
}

// ClientConfig holds the knobs for the API client.
type ClientConfig struct {
	BaseURL    string
	AccessKey  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client talks to the commerce platform's order export endpoint. Transport
// failures are retried with exponential backoff; API rejections are not.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accessKey:  cfg.AccessKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     util.GetLogger(),
	}
}

// FetchPage requests one page of orders. pageIndex is zero-based; the first
// page is requested without an explicit page parameter, matching what the
// API expects.
func (c *Client) FetchPage(ctx context.Context, filter Filter, pageSize, pageIndex int) (*Page, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("magento: page size must be positive, got %d", pageSize)
	}
	if pageIndex < 0 {
		return nil, fmt.Errorf("magento: page index must not be negative, got %d", pageIndex)
	}

	reqURL := c.buildURL(filter, pageSize, pageIndex)

	var page *Page
	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay << (attempt - 2)
			c.logger.Warn("Retrying page fetch",
				zap.Int("page", pageIndex),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, &TransportError{Op: "waiting to retry", Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		page, err = c.fetchOnce(ctx, reqURL)
		if err == nil {
			return page, nil
		}

		var te *TransportError
		if !errors.As(err, &te) {
			return nil, err
		}
	}
	return nil, err
}

// TestConnection issues a single-record probe and reports the platform
// version string from the response envelope.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	probe := Filter{Kind: FilterCreated, Since: time.Now().AddDate(-1, 0, 0)}
	page, err := c.FetchPage(ctx, probe, 1, 0)
	if err != nil {
		return "", err
	}
	if page.Version == "" {
		return "", &APIError{Message: "unexpected response format: missing platform version"}
	}
	return page.Version, nil
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("magento: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var decoded ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return &Page{Orders: decoded.Orders, Version: decoded.Version}, nil
}

func (c *Client) buildURL(filter Filter, pageSize, pageIndex int) string {
	params := url.Values{}
	params.Set("Action", actionOrders)
	params.Set("AccessKey", c.accessKey)
	params.Set("PageSize", strconv.Itoa(pageSize))
	params.Set(filter.Kind.queryParam(), filter.Since.Format(TimeLayout))
	if pageIndex > 0 {
		params.Set("Page", strconv.Itoa(pageIndex))
	}
	return c.baseURL + "?" + params.Encode()
}
