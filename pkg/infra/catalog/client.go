package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

const (
	// DefaultBaseURL is the public ModWorkShop API
	DefaultBaseURL = "https://api.modworkshop.net"
	// DefaultGame is the catalog slug of PAYDAY 2
	DefaultGame = "payday-2"
	// DefaultLimit is the page size used when a search sets none
	DefaultLimit = 10

	// DefaultTimeout bounds one catalog API request
	DefaultTimeout = 60 * time.Second
	// DefaultDownloadTimeout bounds one archive download, body included
	DefaultDownloadTimeout = 30 * time.Minute

	DefaultRetries        = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
)

type client struct {
	baseURL    string
	game       string
	apiKey     string
	httpClient *http.Client

	apiTimeout      time.Duration
	downloadTimeout time.Duration

	retryAttempts   int
	retryBackoff    time.Duration
	retryMaxBackoff time.Duration
}

// Option configures the catalog client
type Option func(*client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithGame sets the catalog game slug used for searches
func WithGame(game string) Option {
	return func(c *client) {
		c.game = game
	}
}

// WithAPIKey sets a bearer token sent with catalog requests
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of one catalog API request
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.apiTimeout = d
	}
}

// WithDownloadTimeout sets the timeout of one archive download
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *client) {
		c.downloadTimeout = d
	}
}

// WithRetry configures retries of transient network failures. attempts is
// the number of retries after the first request; zero disables retrying.
func WithRetry(attempts int, initial, maxBackoff time.Duration) Option {
	return func(c *client) {
		c.retryAttempts = attempts
		c.retryBackoff = initial
		c.retryMaxBackoff = maxBackoff
	}
}

// NewClient creates a catalog client
func NewClient(opts ...Option) interfaces.CatalogClient {
	c := &client{
		baseURL:         DefaultBaseURL,
		game:            DefaultGame,
		httpClient:      &http.Client{},
		apiTimeout:      DefaultTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		retryAttempts:   DefaultRetries,
		retryBackoff:    DefaultInitialBackoff,
		retryMaxBackoff: DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userData struct {
	Name string `json:"name"`
}

type thumbnail struct {
	File string `json:"file"`
}

type modData struct {
	ID           uint32     `json:"id"`
	Name         string     `json:"name"`
	Desc         string     `json:"desc"`
	Downloads    uint32     `json:"downloads"`
	User         userData   `json:"user"`
	HasDownload  bool       `json:"has_download"`
	DownloadType *string    `json:"download_type"`
	Thumbnail    *thumbnail `json:"thumbnail"`
}

type pageMeta struct {
	CurrentPage uint32 `json:"current_page"`
	From        uint32 `json:"from"`
	To          uint32 `json:"to"`
	LastPage    uint32 `json:"last_page"`
	PerPage     uint32 `json:"per_page"`
	Total       uint32 `json:"total"`
}

type searchResponse struct {
	Data []modData `json:"data"`
	Meta pageMeta  `json:"meta"`
}

type downloadData struct {
	DownloadURL *string `json:"download_url"`
}

type detailResponse struct {
	Name     string        `json:"name"`
	Download *downloadData `json:"download"`
}

// SearchMods returns one page of mods matching the query
func (c *client) SearchMods(ctx context.Context, query model.SearchQuery) (*model.ModPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if query.Query != "" {
		params.Set("query", query.Query)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	target := c.baseURL + "/games/" + url.PathEscape(c.game) + "/mods?" + params.Encode()

	body, err := c.get(ctx, target, true)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse search response",
			goerr.V("url", target),
			goerr.T(types.ErrTagParse),
		)
	}

	page := &model.ModPage{
		Mods: make([]model.Mod, 0, len(resp.Data)),
		Meta: model.PageMeta(resp.Meta),
	}
	for _, m := range resp.Data {
		mod := model.Mod{
			ID:          model.ModID(m.ID),
			Name:        m.Name,
			Description: m.Desc,
			Downloads:   m.Downloads,
			Author:      m.User.Name,
			HasDownload: m.HasDownload,
		}
		if m.DownloadType != nil {
			mod.DownloadType = *m.DownloadType
		}
		if m.Thumbnail != nil {
			mod.ThumbnailURL = m.Thumbnail.File
		}
		page.Mods = append(page.Mods, mod)
	}

	return page, nil
}

// GetDownloadURL resolves the download URL of a mod from its detail page
func (c *client) GetDownloadURL(ctx context.Context, id model.ModID) (string, error) {
	target := c.baseURL + "/mods/" + id.String()

	body, err := c.get(ctx, target, true)
	if err != nil {
		return "", err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to parse mod detail response",
			goerr.V("mod_id", id),
			goerr.T(types.ErrTagParse),
		)
	}

	if resp.Download == nil || resp.Download.DownloadURL == nil {
		ctxlog.From(ctx).Debug("Mod has no download", "mod_id", id, "name", resp.Name)
		return "", nil
	}

	return *resp.Download.DownloadURL, nil
}

// DownloadArchive downloads the whole body of rawURL into memory
func (c *client) DownloadArchive(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, false)
}

// get performs a GET with bounded retries of transient failures. Each
// attempt, body read included, is bounded by the API or download timeout.
func (c *client) get(ctx context.Context, target string, api bool) ([]byte, error) {
	logger := ctxlog.From(ctx)

	timeout := c.downloadTimeout
	if api {
		timeout = c.apiTimeout
	}

	var body []byte
	op := func() error {
		reqCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(goerr.Wrap(err, "failed to create request",
				goerr.V("url", target),
				goerr.T(types.ErrTagNetwork),
			))
		}
		req.Header.Set("User-Agent", "voidmod/"+types.Version)
		if api {
			req.Header.Set("Accept", "application/json")
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(canceled(ctx, target))
			}
			return goerr.Wrap(err, "request failed",
				goerr.V("url", target),
				goerr.T(types.ErrTagNetwork),
			)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := goerr.New("unexpected status code",
				goerr.V("url", target),
				goerr.V("status", resp.StatusCode),
				goerr.T(types.ErrTagNetwork),
			)
			if isTransientStatus(resp.StatusCode) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return goerr.Wrap(err, "failed to read response body",
				goerr.V("url", target),
				goerr.T(types.ErrTagNetwork),
			)
		}
		body = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Retrying request",
			"url", target,
			"error", err,
			"wait", wait,
		)
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		if ctx.Err() != nil && !goerr.HasTag(err, types.ErrTagCanceled) {
			return nil, canceled(ctx, target)
		}
		return nil, err
	}

	return body, nil
}

func (c *client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryBackoff
	eb.MaxInterval = c.retryMaxBackoff
	eb.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(c.retryAttempts, 0))), ctx)
}

func canceled(ctx context.Context, target string) error {
	return goerr.Wrap(ctx.Err(), "request canceled",
		goerr.V("url", target),
		goerr.T(types.ErrTagCanceled),
	)
}

// isTransientStatus reports whether a status is worth retrying
func isTransientStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
