// Package gateway is the client side of the comparison REST API. Every call
// issues exactly one request and reports the outcome as a Result; nothing is
// retried or cached.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/compare"
	"github.com/stackprice/stackprice/pkg/export"
)

// Config describes how to reach the API.
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

// Client talks to a stackprice server.
type Client struct {
	base     *url.URL
	username string
	password string
	http     *http.Client
	log      logrus.FieldLogger
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway: unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:     base,
		username: cfg.Username,
		password: cfg.Password,
		http:     cfg.HTTPClient,
		log:      cfg.Log,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.log == nil {
		c.log = utils.Log
	}
	return c, nil
}

// ToolFilter narrows ListTools.
type ToolFilter struct {
	Category string
	Search   string
	Domain   string
}

// Compare asks the server to assemble a comparison of at least two tools.
func (c *Client) Compare(ctx context.Context, toolIDs []string) Result[compare.Result] {
	if err := validateIDs("toolIds", toolIDs, 2); err != nil {
		return Fail[compare.Result](err)
	}
	return call[compare.Result](ctx, c, http.MethodPost, "/api/compare", nil, map[string]any{"toolIds": toolIDs})
}

// CompareProviders is Compare for cloud providers; one provider is enough.
func (c *Client) CompareProviders(ctx context.Context, providerIDs []string) Result[compare.ProviderResult] {
	if err := validateIDs("providerIds", providerIDs, 1); err != nil {
		return Fail[compare.ProviderResult](err)
	}
	return call[compare.ProviderResult](ctx, c, http.MethodPost, "/api/compare/providers", nil, map[string]any{"providerIds": providerIDs})
}

// SaveComparison persists a named comparison of toolIDs.
func (c *Client) SaveComparison(ctx context.Context, name string, toolIDs []string, userID string) Result[catalog.Comparison] {
	var fields []FieldError
	if strings.TrimSpace(name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required"})
	}
	if err := validateIDs("tools", toolIDs, 1); err != nil {
		fields = append(fields, err.Fields...)
	}
	if len(fields) > 0 {
		return Fail[catalog.Comparison](&ValidationError{Fields: fields})
	}
	body := map[string]any{"name": strings.TrimSpace(name), "tools": toolIDs, "userId": userID}
	return call[catalog.Comparison](ctx, c, http.MethodPost, "/api/compare/save", nil, body)
}

func (c *Client) GetComparison(ctx context.Context, id string) Result[catalog.Comparison] {
	if err := validateID(id); err != nil {
		return Fail[catalog.Comparison](err)
	}
	return call[catalog.Comparison](ctx, c, http.MethodGet, "/api/compare/"+url.PathEscape(id), nil, nil)
}

// ListSaved lists saved comparisons, newest first. An empty userID lists
// every comparison the server holds.
func (c *Client) ListSaved(ctx context.Context, userID string) Result[[]catalog.Comparison] {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	return call[[]catalog.Comparison](ctx, c, http.MethodGet, "/api/compare/saved", q, nil)
}

func (c *Client) DeleteComparison(ctx context.Context, id string) Result[struct{}] {
	if err := validateID(id); err != nil {
		return Fail[struct{}](err)
	}
	return call[struct{}](ctx, c, http.MethodDelete, "/api/compare/"+url.PathEscape(id), nil, nil)
}

// Export has the server render tools in format.
func (c *Client) Export(ctx context.Context, format string, tools []catalog.Tool) Result[export.Payload] {
	var fields []FieldError
	if !export.Supported(format) {
		fields = append(fields, FieldError{Field: "format", Message: "format must be one of " + strings.Join(export.Formats, ", ")})
	}
	if len(tools) == 0 {
		fields = append(fields, FieldError{Field: "tools", Message: "at least one tool is required"})
	}
	if len(fields) > 0 {
		return Fail[export.Payload](&ValidationError{Fields: fields})
	}
	body := map[string]any{"format": strings.ToLower(strings.TrimSpace(format)), "tools": tools}
	return call[export.Payload](ctx, c, http.MethodPost, "/api/compare/export", nil, body)
}

// HistoricalPricing returns the recorded price changes of toolIDs.
func (c *Client) HistoricalPricing(ctx context.Context, toolIDs []string) Result[[]catalog.PricePoint] {
	if err := validateIDs("toolIds", toolIDs, 1); err != nil {
		return Fail[[]catalog.PricePoint](err)
	}
	return call[[]catalog.PricePoint](ctx, c, http.MethodPost, "/api/compare/historical", nil, map[string]any{"toolIds": toolIDs})
}

// PricingAnalysis returns a free-text analysis of tool and its history.
func (c *Client) PricingAnalysis(ctx context.Context, tool catalog.Tool, history []catalog.PricePoint) Result[string] {
	if strings.TrimSpace(tool.ID) == "" {
		return Fail[string](&ValidationError{Fields: []FieldError{{Field: "tool.id", Message: "tool id is required"}}})
	}
	if history == nil {
		history = []catalog.PricePoint{}
	}
	body := map[string]any{"tool": tool, "historicalData": history}
	return call[string](ctx, c, http.MethodPost, "/api/ai/pricing-analysis", nil, body)
}

func (c *Client) ListTools(ctx context.Context, filter ToolFilter) Result[[]catalog.Tool] {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Domain != "" {
		q.Set("domain", filter.Domain)
	}
	return call[[]catalog.Tool](ctx, c, http.MethodGet, "/api/tools", q, nil)
}

func (c *Client) GetTool(ctx context.Context, id string) Result[catalog.Tool] {
	if err := validateID(id); err != nil {
		return Fail[catalog.Tool](err)
	}
	return call[catalog.Tool](ctx, c, http.MethodGet, "/api/tools/"+url.PathEscape(id), nil, nil)
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) Result[T] {
	// path segments are already escaped by the callers
	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := &request{Method: method, URL: target}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Fail[T](fmt.Errorf("gateway: encode request: %w", err))
		}
		req.Body = data
	}
	if c.username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
		req.Headers = append(req.Headers, header{Name: "Authorization", Value: "Basic " + token})
	}

	start := time.Now()
	res, err := send(ctx, c.http, req)
	if err != nil {
		c.log.Debugf("[gateway] %s %s failed: %v", method, path, err)
		return Fail[T](fmt.Errorf("gateway: %s %s: %w", method, path, err))
	}
	c.log.Debugf("[gateway] %s %s -> %d in %s", method, path, res.StatusCode, time.Since(start).Round(time.Millisecond))

	return decode[T](res)
}

// decode unpacks the {success, data, error, details} envelope.
func decode[T any](res *response) Result[T] {
	ok2xx := res.StatusCode >= 200 && res.StatusCode < 300

	if !gjson.ValidBytes(res.Body) {
		msg := "response is not valid JSON"
		if !ok2xx {
			msg = http.StatusText(res.StatusCode)
		}
		return Fail[T](&RemoteError{Status: res.StatusCode, Message: msg})
	}

	env := gjson.ParseBytes(res.Body)
	if !ok2xx || !env.Get("success").Bool() {
		remote := &RemoteError{Status: res.StatusCode, Message: env.Get("error").String()}
		env.Get("details").ForEach(func(_, d gjson.Result) bool {
			remote.Fields = append(remote.Fields, FieldError{
				Field:   d.Get("field").String(),
				Message: d.Get("message").String(),
			})
			return true
		})
		return Fail[T](remote)
	}

	var v T
	if data := env.Get("data"); data.Exists() && data.Type != gjson.Null {
		if err := json.Unmarshal([]byte(data.Raw), &v); err != nil {
			return Fail[T](fmt.Errorf("gateway: decode response data: %w", err))
		}
	}
	return Ok(v)
}

func validateID(id string) *ValidationError {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Fields: []FieldError{{Field: "id", Message: "id is required"}}}
	}
	return nil
}

func validateIDs(field string, ids []string, min int) *ValidationError {
	if len(ids) < min {
		msg := fmt.Sprintf("at least %d ids are required", min)
		if min == 1 {
			msg = "at least one id is required"
		}
		return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Fields: []FieldError{{Field: fmt.Sprintf("%s[%d]", field, i), Message: "id must not be empty"}}}
		}
	}
	return nil
}
