package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"assetrepo/internal/filter"
	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// AuthStyle selects how REST credentials are sent.
type AuthStyle string

const (
	AuthBasic   AuthStyle = "basic"
	AuthHeaders AuthStyle = "headers"
)

// DefaultReadTimeout bounds each REST request.
const DefaultReadTimeout = 300 * time.Second

// RESTConfig locates and authenticates against a REST repository.
type RESTConfig struct {
	BaseURL     string
	APIKey      string
	UserID      string
	Password    string
	Auth        AuthStyle
	ReadTimeout time.Duration
}

// RESTClient talks to a repository over its REST API. Requests are not
// retried.
type RESTClient struct {
	cfg    RESTConfig
	base   *url.URL
	http   *http.Client
	logger repository.Logger
	opts   jsonbind.Options
}

var _ repository.Client = (*RESTClient)(nil)

// Paths tried, in order, for a human readable message in an error body.
var errorMessagePaths = []jp.Expr{
	jp.MustParseString("$.message"),
	jp.MustParseString("$.error.message"),
}

// NewRESTClient creates a client for the repository at cfg.BaseURL.
func NewRESTClient(cfg RESTConfig, opts ...Option) (*RESTClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest repository requires a base url")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.WrapWithDetails(err, "parsing repository url", "url", cfg.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.NewWithDetails("unsupported repository url scheme", "url", cfg.BaseURL)
	}
	switch cfg.Auth {
	case "":
		cfg.Auth = AuthBasic
	case AuthBasic, AuthHeaders:
	default:
		return nil, errors.NewWithDetails("unknown auth style", "auth", cfg.Auth)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	o := buildOptions(opts)
	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.ReadTimeout}
	}
	return &RESTClient{
		cfg:    cfg,
		base:   base,
		http:   hc,
		logger: o.logger,
		opts:   o.decode(),
	}, nil
}

// CheckRepositoryStatus issues HEAD /assets and expects a count header.
func (c *RESTClient) CheckRepositoryStatus(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodHead, c.endpoint("assets"), nil, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.Header.Get("count") == "" {
		return &repository.RequestFailureError{
			StatusCode: resp.StatusCode,
			Message:    "response is missing the count header",
			URL:        redact(*resp.Request.URL),
		}
	}
	return nil
}

func (c *RESTClient) GetAllAssets(ctx context.Context) ([]*model.Asset, error) {
	return c.listAssets(ctx, nil)
}

// GetAsset fetches one asset, including its attachments.
func (c *RESTClient) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	return c.getAsset(ctx, id, c.opts)
}

// getAssetUnverified fetches an asset whatever schema version it declares,
// so that it can still be deleted.
func (c *RESTClient) getAssetUnverified(ctx context.Context, id string) (*model.Asset, error) {
	opts := c.opts
	opts.SkipVersionCheck = true
	return c.getAsset(ctx, id, opts)
}

func (c *RESTClient) getAsset(ctx context.Context, id string, opts jsonbind.Options) (*model.Asset, error) {
	body, err := c.getBody(ctx, c.endpoint("assets", id), nil)
	if err != nil {
		return nil, err
	}
	a, err := model.Assets.Unmarshal(body, opts)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "decoding asset", "id", id)
	}
	return a.Normalize(), nil
}

func (c *RESTClient) GetAssets(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) ([]*model.Asset, error) {
	return c.GetFilteredAssets(ctx, filter.ForQuery(types, productIDs, visibility, productVersions))
}

func (c *RESTClient) GetAssetsWithUnboundedMaxVersion(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility) ([]*model.Asset, error) {
	return c.GetFilteredAssets(ctx, filter.ForQuery(types, productIDs, visibility, nil).WithUnboundedMaxVersion())
}

// GetFilteredAssets lets the server do the filtering.
func (c *RESTClient) GetFilteredAssets(ctx context.Context, filters filter.Filters) ([]*model.Asset, error) {
	if filters.IsEmpty() {
		return c.GetAllAssets(ctx)
	}
	query, err := filterQuery(filters)
	if err != nil {
		return nil, err
	}
	return c.listAssets(ctx, query)
}

// FindAssets runs a server-side text search.
func (c *RESTClient) FindAssets(ctx context.Context, search string, types []model.ResourceType) ([]*model.Asset, error) {
	query := url.Values{}
	query.Set("q", search)
	if len(types) > 0 {
		wire := make([]string, 0, len(types))
		for _, t := range types {
			wire = append(wire, t.Value())
		}
		query.Set("type", strings.Join(wire, "|"))
	}
	return c.listAssets(ctx, query)
}

// GetAttachment streams the attachment content. Repository credentials are
// only sent when the attachment lives under the repository's base URL.
func (c *RESTClient) GetAttachment(ctx context.Context, asset *model.Asset, attachment *model.Attachment) (io.ReadCloser, error) {
	if attachment == nil {
		return nil, repository.NewClientFailure(nil, "attachment is required")
	}
	target := attachment.URL
	if target == "" {
		if asset == nil {
			return nil, repository.NewClientFailure(nil, "attachment has no url and no asset")
		}
		target = c.endpoint("assets", asset.ID, "attachments", attachment.ID).String()
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "parsing attachment url", "url", target)
	}

	if !c.ownsURL(u) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "building attachment request")
		}
		c.logger.Debug("fetching external attachment", "url", u.String())
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.WrapWithDetails(err, "fetching attachment", "url", u.String())
		}
		if err := checkResponse(resp); err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	resp, err := c.do(ctx, http.MethodGet, u, nil, nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *RESTClient) listAssets(ctx context.Context, query url.Values) ([]*model.Asset, error) {
	body, err := c.getBody(ctx, c.endpoint("assets"), query)
	if err != nil {
		return nil, err
	}
	assets, skipped, err := model.Assets.UnmarshalListSkipped(body, c.opts)
	if err != nil {
		return nil, errors.WrapIf(err, "decoding asset list")
	}
	repository.LogSkipped(c.logger, c.base.String(), skipped)
	return normalizeAll(assets), nil
}

func (c *RESTClient) getBody(ctx context.Context, u *url.URL, query url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, u, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "reading response", "url", redact(*resp.Request.URL))
	}
	return body, nil
}

func (c *RESTClient) endpoint(segments ...string) *url.URL {
	return c.base.JoinPath(segments...)
}

func (c *RESTClient) ownsURL(u *url.URL) bool {
	if u.Scheme != c.base.Scheme || u.Host != c.base.Host {
		return false
	}
	return u.Path == c.base.Path || strings.HasPrefix(u.Path, strings.TrimRight(c.base.Path, "/")+"/")
}

// do sends an authenticated request and turns non-2xx responses into
// *repository.RequestFailureError. The caller closes the body on success.
func (c *RESTClient) do(ctx context.Context, method string, u *url.URL, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	target := *u
	q := target.Query()
	for k, vs := range query {
		q[k] = vs
	}
	if c.cfg.APIKey != "" {
		q.Set("apiKey", c.cfg.APIKey)
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "building request", "method", method, "url", target.String())
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.UserID != "" {
		switch c.cfg.Auth {
		case AuthHeaders:
			req.Header.Set("userId", c.cfg.UserID)
			req.Header.Set("password", c.cfg.Password)
		default:
			req.SetBasicAuth(c.cfg.UserID, c.cfg.Password)
		}
	}

	c.logger.Debug("repository request", "method", method, "url", redact(target))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "sending request", "method", method, "url", redact(target))
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	u := ""
	if resp.Request != nil {
		u = redact(*resp.Request.URL)
	}
	return &repository.RequestFailureError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body, resp),
		URL:        u,
	}
}

// errorMessage prefers a message field from a JSON body, then the raw body,
// then the status reason phrase.
func errorMessage(body []byte, resp *http.Response) string {
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if doc, err := oj.Parse(trimmed); err == nil {
			for _, x := range errorMessagePaths {
				for _, v := range x.Get(doc) {
					if s, ok := v.(string); ok && s != "" {
						return s
					}
				}
			}
		}
		return string(trimmed)
	}
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

func redact(u url.URL) string {
	q := u.Query()
	if q.Has("apiKey") {
		q.Set("apiKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
