package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"instacomments/pkg/comments"
	"instacomments/pkg/logger"
	"instacomments/pkg/ratelimit"
)

const (
	// DefaultUserAgent mimics Chrome on Android, which the web GraphQL endpoint accepts
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 13; SM-A125F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36"

	// DefaultAppID is the public web app id sent as X-IG-App-ID
	DefaultAppID = "936619743392459"

	maxBodyPreview = 200
)

// RequestObserver is told about every finished request. outcome is "ok" or an ErrorType.
type RequestObserver interface {
	ObserveRequest(stream comments.Stream, outcome string, duration time.Duration)
}

// ReplyPage is one page of a comment's reply stream
type ReplyPage struct {
	Items   []comments.Reply
	Next    comments.PageCursor
	HasNext bool
}

// Client fetches comment pages from the Instagram web GraphQL endpoint.
// It sends one request per call and never retries.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
	pacer      ratelimit.Limiter
	observer   RequestObserver
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithPacer makes every request wait on the limiter first
func WithPacer(l ratelimit.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.pacer = l
		}
	}
}

// WithObserver reports request outcomes, e.g. to metrics
func WithObserver(o RequestObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Instagram API client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":       DefaultUserAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-Requested-With": "XMLHttpRequest",
			"X-IG-App-ID":      DefaultAppID,
		},
		baseURL: BaseURL,
		logger:  log.WithField("component", "instagram"),
		pacer:   ratelimit.NewPacer(0, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// FetchPage fetches one page of parent comments
func (c *Client) FetchPage(ctx context.Context, fc comments.FetchContext, cursor comments.PageCursor) (comments.Page, error) {
	if err := validateFetchContext(fc); err != nil {
		return comments.Page{}, err
	}

	url := ParentCommentsURL(c.baseURL, fc.Shortcode, fc.PerPage, cursor)

	var resp ParentCommentsResponse
	if err := c.getJSON(ctx, fc, comments.StreamParents, url, &resp); err != nil {
		return comments.Page{}, err
	}

	media := resp.Data.ShortcodeMedia
	if media == nil {
		return comments.Page{}, newError(ErrorTypeNotFound, http.StatusOK,
			"shortcode_media missing (invalid URL, private content or expired cookies)", nil)
	}

	edge := media.EdgeMediaToParentComment
	if edge.PageInfo.HasNextPage && edge.PageInfo.EndCursor == "" {
		return comments.Page{}, newError(ErrorTypeTransport, http.StatusOK, "has_next_page without end_cursor", nil)
	}

	page := comments.Page{
		Items:   make([]comments.RawComment, 0, len(edge.Edges)),
		Next:    comments.PageCursor(edge.PageInfo.EndCursor),
		HasNext: edge.PageInfo.HasNextPage,
	}
	for _, e := range edge.Edges {
		page.Items = append(page.Items, e.Node.raw())
	}

	c.logger.DebugWithFields("fetched comment page", map[string]interface{}{
		"shortcode": fc.Shortcode,
		"items":     len(page.Items),
		"has_next":  page.HasNext,
	})

	return page, nil
}

// FetchReplyPage fetches one page of replies to parentID
func (c *Client) FetchReplyPage(ctx context.Context, fc comments.FetchContext, parentID string, cursor comments.PageCursor) (ReplyPage, error) {
	if err := validateFetchContext(fc); err != nil {
		return ReplyPage{}, err
	}
	if parentID == "" {
		return ReplyPage{}, errors.New("parent comment id is required")
	}
	fc = fc.ForReplies(parentID)

	url := RepliesURL(c.baseURL, parentID, fc.PerPage, cursor)

	var resp RepliesResponse
	if err := c.getJSON(ctx, fc, comments.StreamReplies, url, &resp); err != nil {
		return ReplyPage{}, err
	}

	if resp.Data.Comment == nil {
		return ReplyPage{}, newError(ErrorTypeNotFound, http.StatusOK, "comment missing from reply response", nil)
	}

	edge := resp.Data.Comment.EdgeThreadedComments
	if edge.PageInfo.HasNextPage && edge.PageInfo.EndCursor == "" {
		return ReplyPage{}, newError(ErrorTypeTransport, http.StatusOK, "has_next_page without end_cursor", nil)
	}

	page := ReplyPage{
		Items:   make([]comments.Reply, 0, len(edge.Edges)),
		Next:    comments.PageCursor(edge.PageInfo.EndCursor),
		HasNext: edge.PageInfo.HasNextPage,
	}
	for _, e := range edge.Edges {
		page.Items = append(page.Items, e.Node.reply())
	}
	return page, nil
}

// FetchAllReplies walks parentID's reply stream to the end in API order. On
// failure it returns the replies gathered so far together with the error.
func (c *Client) FetchAllReplies(ctx context.Context, fc comments.FetchContext, parentID string) ([]comments.Reply, error) {
	var (
		replies []comments.Reply
		cursor  comments.PageCursor
	)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return replies, err
		}

		rp, err := c.FetchReplyPage(ctx, fc, parentID, cursor)
		if err != nil {
			return replies, fmt.Errorf("reply page %d of comment %s: %w", page, parentID, err)
		}
		replies = append(replies, rp.Items...)

		if !rp.HasNext {
			return replies, nil
		}
		cursor = rp.Next
	}
}

func validateFetchContext(fc comments.FetchContext) error {
	switch {
	case fc.Shortcode == "":
		return errors.New("shortcode is required")
	case fc.Credentials == nil:
		return errors.New("credentials are required")
	case fc.PerPage <= 0:
		return fmt.Errorf("per page must be positive, got %d", fc.PerPage)
	}
	return nil
}

// getJSON performs one paced GET and decodes the JSON body into target
func (c *Client) getJSON(ctx context.Context, fc comments.FetchContext, stream comments.Stream, url string, target interface{}) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(ErrorTypeTransport, 0, "failed to create request", err)
	}
	c.setHeaders(req, fc)

	start := time.Now()
	err = c.doJSON(ctx, req, fc, stream, target)

	if c.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(TypeOf(err))
			if outcome == "" {
				outcome = "canceled"
			}
		}
		c.observer.ObserveRequest(stream, outcome, time.Since(start))
	}
	return err
}

func (c *Client) setHeaders(req *http.Request, fc comments.FetchContext) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	session := fc.Credentials
	if session.UserAgent != "" {
		req.Header.Set("User-Agent", session.UserAgent)
	}
	req.Header.Set("Referer", MediaURL(fc.Kind, fc.Shortcode))
	req.Header.Set("Cookie", session.CookieHeader())
	req.Header.Set("X-CSRFToken", session.CSRFToken)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, fc comments.FetchContext, stream comments.Stream, target interface{}) error {
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"stream": string(stream),
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"stream": string(stream),
		})
		return newError(ErrorTypeTransport, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, fc, stream); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(ErrorTypeTransport, resp.StatusCode, "failed to read response body", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if isLoginPage(resp) {
			return newError(ErrorTypeAuth, resp.StatusCode, "redirected to the login page", nil)
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"stream":       string(stream),
			"status":       resp.StatusCode,
			"body_preview": preview(body),
		})
		return newError(ErrorTypeTransport, resp.StatusCode, "non-JSON response", err)
	}
	if env.RequireLogin {
		return newError(ErrorTypeAuth, resp.StatusCode, "login required", nil)
	}
	if env.Status == "fail" {
		return newError(ErrorTypeTransport, resp.StatusCode, "request failed: "+env.Message, nil)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return newError(ErrorTypeTransport, resp.StatusCode, "unexpected response shape", err)
	}
	return nil
}

// checkResponseStatus maps HTTP status codes onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response, fc comments.FetchContext, stream comments.Stream) error {
	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"stream": string(stream),
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return newError(ErrorTypeAuth, resp.StatusCode, "authentication required", nil)
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("media not found", fields)
		return newError(ErrorTypeNotFound, resp.StatusCode, "media not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		target := fc.Shortcode
		if stream == comments.StreamReplies {
			target = fc.ParentID
		}
		logger.LogRateLimit(c.logger, string(stream), target)
		return newError(ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded", nil)
	default:
		c.logger.ErrorWithFields("unexpected API status", fields)
		return newError(ErrorTypeTransport, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}
}

func isLoginPage(resp *http.Response) bool {
	return resp.Request != nil && strings.Contains(resp.Request.URL.Path, "/accounts/login")
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxBodyPreview {
		s = s[:maxBodyPreview] + "..."
	}
	return s
}
