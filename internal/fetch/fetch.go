package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kolah/portico/internal/document"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Options struct {
	// CatalogURL returns the JSON list of API names.
	CatalogURL string
	// SpecBaseURL is the root under which each API's spec lives, one
	// document at {SpecBaseURL}/{name}.
	SpecBaseURL string

	Timeout          time.Duration
	RequestDelay     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	RetryStatusCodes []int
	RetryMethods     []string
	MaxConnections   int
	VerifySSL        bool
}

// Client fetches remote API specifications: the catalog of names first,
// then one spec document per name. Failures of individual entries are
// logged and skipped so one broken spec cannot block the rest.
type Client struct {
	catalogURL  string
	specBaseURL string
	http        *http.Client
	delay       time.Duration
	maxRetries  int
	retryDelay  time.Duration
	retryStatus map[int]bool
	retryMethod map[string]bool
	logger      *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		MaxIdleConns:    opts.MaxConnections,
		MaxConnsPerHost: opts.MaxConnections,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.VerifySSL},
	}

	retryStatus := make(map[int]bool, len(opts.RetryStatusCodes))
	for _, code := range opts.RetryStatusCodes {
		retryStatus[code] = true
	}

	retryMethod := make(map[string]bool, len(opts.RetryMethods))
	for _, method := range opts.RetryMethods {
		retryMethod[strings.ToUpper(method)] = true
	}

	return &Client{
		catalogURL:  opts.CatalogURL,
		specBaseURL: strings.TrimSuffix(opts.SpecBaseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		delay:       opts.RequestDelay,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
		retryStatus: retryStatus,
		retryMethod: retryMethod,
		logger:      logger.With(zap.String("component", "fetch")),
	}
}

// FetchAll retrieves the catalog and every listed spec. The returned map
// holds only the documents that were fetched and parsed; per-entry
// failures are logged and omitted.
func (c *Client) FetchAll(ctx context.Context) (map[string]*document.Document, error) {
	names, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	specs := make(map[string]*document.Document, len(names))
	for i, name := range names {
		if i > 0 && c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		doc, err := c.fetchSpec(ctx, name)
		if err != nil {
			c.logger.Warn("skipping API spec", zap.String("api", name), zap.Error(err))
			continue
		}
		specs[name] = doc
	}

	c.logger.Info("fetched API specs", zap.Int("count", len(specs)), zap.Int("listed", len(names)))
	return specs, nil
}

func (c *Client) fetchCatalog(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.catalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetching API catalog: %w", err)
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("decoding API catalog: %w", err)
	}
	return names, nil
}

func (c *Client) fetchSpec(ctx context.Context, name string) (*document.Document, error) {
	body, err := c.get(ctx, c.specBaseURL+"/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing spec: %w", err)
	}
	return doc, nil
}

// get performs one GET with the configured retry policy: a retryable
// status or transport error is attempted again up to MaxRetries times,
// RetryDelay apart.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.logger.Debug("retrying request",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt))
		}

		body, retryable, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || !c.retryMethod[http.MethodGet] {
			return nil, err
		}
	}

	return nil, fmt.Errorf("retried %d times: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.retryStatus[resp.StatusCode], fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
