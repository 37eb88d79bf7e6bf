package cms

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"resty.dev/v3"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	defaultRefTTL   = 30 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 100
	fetchLinks      = "page.page_title,page.parent"

	headerRequestID = "X-Request-ID"
)

// Config locates the CMS repository.
type Config struct {
	Endpoint    string
	Repository  string
	AccessToken string
	RefTTL      time.Duration
	Timeout     time.Duration
	PageSize    int
}

// BaseURL returns the API root, derived from Repository when Endpoint is
// not set.
func (c Config) BaseURL() string {
	if endpoint := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/"); endpoint != "" {
		return endpoint
	}
	return fmt.Sprintf("https://%s.cdn.prismic.io", strings.TrimSpace(c.Repository))
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for master ref expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client reads documents from the CMS REST API. Every query is pinned to
// the master ref, which is refreshed after RefTTL.
type Client struct {
	http     *resty.Client
	token    string
	refTTL   time.Duration
	pageSize int
	now      func() time.Time
	logger   interfaces.Logger

	mu        sync.Mutex
	ref       string
	refExpiry time.Time
}

var _ Reader = (*Client)(nil)

// NewClient builds a Client for cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL()).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		token:    strings.TrimSpace(cfg.AccessToken),
		refTTL:   cfg.RefTTL,
		pageSize: cfg.PageSize,
		now:      time.Now,
		logger:   logging.NoOp(),
	}
	if c.refTTL <= 0 {
		c.refTTL = defaultRefTTL
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// GetByUID returns the document of docType with uid in lang.
func (c *Client) GetByUID(ctx context.Context, docType, uid, lang string) (*document.Document, error) {
	q := predicates(docType, "my."+docType+".uid", uid)
	docs, _, err := c.search(ctx, q, lang, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, noDocuments(docType, uid, lang)
	}
	return docs[0], nil
}

// GetSingle returns the single document of docType in lang.
func (c *Client) GetSingle(ctx context.Context, docType, lang string) (*document.Document, error) {
	docs, _, err := c.search(ctx, predicates(docType, "", ""), lang, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, noDocuments(docType, "", lang)
	}
	return docs[0], nil
}

// GetAllByType pages through every master-language document of docType.
func (c *Client) GetAllByType(ctx context.Context, docType string) ([]*document.Document, error) {
	q := predicates(docType, "", "")
	var all []*document.Document
	for page := 1; ; page++ {
		docs, totalPages, err := c.search(ctx, q, "", page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
		if page >= totalPages || len(docs) == 0 {
			return all, nil
		}
	}
}

func (c *Client) search(ctx context.Context, q, lang string, page, pageSize int) ([]*document.Document, int, error) {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return nil, 0, err
	}

	req := c.newRequest(ctx).
		SetQueryParam("ref", ref).
		SetQueryParam("q", q).
		SetQueryParam("fetchLinks", fetchLinks).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("pageSize", strconv.Itoa(pageSize))
	if lang != "" {
		req.SetQueryParam("lang", lang)
	}
	if c.token != "" {
		req.SetQueryParam("access_token", c.token)
	}

	var result searchResponse
	resp, err := req.SetResult(&result).Get("/api/v2/documents/search")
	if err != nil {
		return nil, 0, apiFailure(err, "cms search request failed")
	}
	if resp.IsError() {
		return nil, 0, statusError(resp.StatusCode(), "cms search")
	}

	docs := make([]*document.Document, 0, len(result.Results))
	for _, raw := range result.Results {
		doc, err := convert(raw)
		if err != nil {
			c.logger.WithContext(ctx).Warn("cms.document.decode_failed", "uid", raw.UID, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, result.TotalPages, nil
}

// newRequest forwards the inbound request id so CMS calls can be traced.
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.SetHeader(headerRequestID, id)
	}
	return req
}

func (c *Client) masterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ref != "" && c.now().Before(c.refExpiry) {
		return c.ref, nil
	}

	req := c.newRequest(ctx)
	if c.token != "" {
		req.SetQueryParam("access_token", c.token)
	}
	var info apiInfo
	resp, err := req.SetResult(&info).Get("/api/v2")
	if err != nil {
		return "", apiFailure(err, "cms api info request failed")
	}
	if resp.IsError() {
		return "", statusError(resp.StatusCode(), "cms api info")
	}
	for _, ref := range info.Refs {
		if ref.IsMasterRef && ref.Ref != "" {
			c.ref = ref.Ref
			c.refExpiry = c.now().Add(c.refTTL)
			return c.ref, nil
		}
	}
	return "", goerrors.New("cms api did not return a master ref", goerrors.CategoryExternal).
		WithTextCode(TextCodeNoMasterRef)
}

func predicates(docType, field, value string) string {
	var b strings.Builder
	b.WriteString(`[[at(document.type,"`)
	b.WriteString(docType)
	b.WriteString(`")]`)
	if field != "" {
		b.WriteString(`[at(`)
		b.WriteString(field)
		b.WriteString(`,"`)
		b.WriteString(strings.ReplaceAll(value, `"`, `\"`))
		b.WriteString(`")]`)
	}
	b.WriteString("]")
	return b.String()
}

func statusError(status int, operation string) error {
	return goerrors.New(fmt.Sprintf("%s returned %d %s", operation, status, http.StatusText(status)), goerrors.CategoryExternal).
		WithCode(status).
		WithTextCode(TextCodeAPIFailure)
}
