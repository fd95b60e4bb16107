package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instacomments/pkg/auth"
	"instacomments/pkg/comments"
	"instacomments/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func testSession() *auth.Session {
	return &auth.Session{
		Name:      "test",
		SessionID: "sess%3Aabc",
		DSUserID:  "4242",
		CSRFToken: "csrf123",
		MID:       "mid456",
	}
}

func testFetchContext() comments.FetchContext {
	return comments.FetchContext{
		Shortcode:   "Cabc",
		Kind:        comments.MediaReel,
		Credentials: testSession(),
		PerPage:     2,
		Stream:      comments.StreamParents,
	}
}

func intPtr(i int) *int { return &i }

type testNode struct {
	ID                   string      `json:"id"`
	Text                 string      `json:"text"`
	CreatedAt            int64       `json:"created_at"`
	Owner                interface{} `json:"owner"`
	LikeCount            *int        `json:"like_count,omitempty"`
	EdgeLikedBy          interface{} `json:"edge_liked_by,omitempty"`
	EdgeThreadedComments interface{} `json:"edge_threaded_comments,omitempty"`
}

func node(id, username string, likes int) testNode {
	return testNode{
		ID:                   id,
		Text:                 "text " + id,
		CreatedAt:            1700000000,
		Owner:                map[string]string{"username": username},
		LikeCount:            intPtr(likes),
		EdgeThreadedComments: map[string]int{"count": 0},
	}
}

func connection(nodes []testNode, hasNext bool, cursor string) map[string]interface{} {
	edges := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, map[string]interface{}{"node": n})
	}
	return map[string]interface{}{
		"count":     len(nodes),
		"edges":     edges,
		"page_info": map[string]interface{}{"has_next_page": hasNext, "end_cursor": cursor},
	}
}

func parentBody(nodes []testNode, hasNext bool, cursor string) map[string]interface{} {
	return map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"shortcode_media": map[string]interface{}{
				"id":                           "1",
				"shortcode":                    "Cabc",
				"edge_media_to_parent_comment": connection(nodes, hasNext, cursor),
			},
		},
	}
}

func replyBody(nodes []testNode, hasNext bool, cursor string) map[string]interface{} {
	return map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"comment": map[string]interface{}{
				"id":                     "p1",
				"edge_threaded_comments": connection(nodes, hasNext, cursor),
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// variables decodes the GraphQL variables of a request
func variables(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("variables")), &v))
	return v
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	return NewClient(5*time.Second, log, WithBaseURL(srv.URL)), log
}

func TestNewClient(t *testing.T) {
	client := NewClient(30*time.Second, logger.NewTestLogger())

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, BaseURL, client.baseURL)
	assert.Equal(t, DefaultUserAgent, client.headers["User-Agent"])
	assert.Equal(t, DefaultAppID, client.headers["X-IG-App-ID"])
	assert.NotNil(t, client.pacer)
}

func TestSetHeaders(t *testing.T) {
	client := NewClient(time.Second, logger.NewNopLogger())

	client.SetHeaders(map[string]string{"X-Custom": "value", "User-Agent": "Custom/1.0", "Accept-Language": "de"})

	assert.Equal(t, "value", client.headers["X-Custom"])
	assert.Equal(t, "Custom/1.0", client.headers["User-Agent"])
	assert.Equal(t, "de", client.headers["Accept-Language"])
}

func TestFetchPageSendsHeaders(t *testing.T) {
	var got http.Header
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, parentBody(nil, false, ""))
	})

	_, err := client.FetchPage(context.Background(), testFetchContext(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "*/*", got.Get("Accept"))
	assert.Equal(t, "XMLHttpRequest", got.Get("X-Requested-With"))
	assert.Equal(t, DefaultAppID, got.Get("X-IG-App-ID"))
	assert.Equal(t, "https://www.instagram.com/reel/Cabc/", got.Get("Referer"))
	assert.Equal(t, "sessionid=sess%3Aabc; ds_user_id=4242; csrftoken=csrf123; mid=mid456;", got.Get("Cookie"))
	assert.Equal(t, "csrf123", got.Get("X-CSRFToken"))
}

func TestFetchPageSessionUserAgent(t *testing.T) {
	var ua string
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		writeJSON(w, parentBody(nil, false, ""))
	})

	fc := testFetchContext()
	fc.Credentials.UserAgent = "Saved/2.0"
	_, err := client.FetchPage(context.Background(), fc, "")
	require.NoError(t, err)
	assert.Equal(t, "Saved/2.0", ua)
}

func TestFetchPageParsesNodes(t *testing.T) {
	likedBy := node("2", "bob", 0)
	likedBy.LikeCount = nil
	likedBy.EdgeLikedBy = map[string]int{"count": 7}

	unknownReplies := node("3", "carol", 1)
	unknownReplies.EdgeThreadedComments = nil

	withReplies := node("1", "alice", 3)
	withReplies.EdgeThreadedComments = map[string]int{"count": 4}

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		vars := variables(t, r)
		assert.Equal(t, ParentCommentsQueryHash, r.URL.Query().Get("query_hash"))
		assert.Equal(t, "Cabc", vars["shortcode"])
		assert.EqualValues(t, 2, vars["first"])
		assert.Equal(t, "prev", vars["after"])
		writeJSON(w, parentBody([]testNode{withReplies, likedBy, unknownReplies}, true, "next"))
	})

	page, err := client.FetchPage(context.Background(), testFetchContext(), "prev")
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.True(t, page.HasNext)
	assert.Equal(t, comments.PageCursor("next"), page.Next)

	assert.Equal(t, "alice", page.Items[0].Username)
	assert.Equal(t, 3, page.Items[0].LikeCount)
	assert.Equal(t, 4, page.Items[0].ReplyCount)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), page.Items[0].CreatedAt)
	assert.Equal(t, "text 1", page.Items[0].Text)

	assert.Equal(t, 7, page.Items[1].LikeCount)
	assert.Equal(t, -1, page.Items[2].ReplyCount)
}

func TestFetchPageEndMarker(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAfter := variables(t, r)["after"]
		assert.False(t, hasAfter, "first page must not send a cursor")
		writeJSON(w, parentBody(nil, false, ""))
	})

	page, err := client.FetchPage(context.Background(), testFetchContext(), "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.True(t, page.Done())
}

func TestFetchPageErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType ErrorType
		sentinel error
		code     int
	}{
		{
			name:     "unauthorized",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			wantType: ErrorTypeAuth, sentinel: ErrAuth, code: 401,
		},
		{
			name:     "forbidden",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantType: ErrorTypeAuth, sentinel: ErrAuth, code: 403,
		},
		{
			name:     "not found",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantType: ErrorTypeNotFound, sentinel: ErrNotFound, code: 404,
		},
		{
			name:     "rate limited",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			wantType: ErrorTypeRateLimit, sentinel: ErrRateLimit, code: 429,
		},
		{
			name:     "server error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantType: ErrorTypeTransport, sentinel: ErrTransport, code: 502,
		},
		{
			name: "non JSON body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			wantType: ErrorTypeTransport, sentinel: ErrTransport, code: 200,
		},
		{
			name: "require login body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]interface{}{"require_login": true, "status": "fail"})
			},
			wantType: ErrorTypeAuth, sentinel: ErrAuth, code: 200,
		},
		{
			name: "status fail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]interface{}{"status": "fail", "message": "execution failure"})
			},
			wantType: ErrorTypeTransport, sentinel: ErrTransport, code: 200,
		},
		{
			name: "missing shortcode media",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]interface{}{"status": "ok", "data": map[string]interface{}{"shortcode_media": nil}})
			},
			wantType: ErrorTypeNotFound, sentinel: ErrNotFound, code: 200,
		},
		{
			name: "has next without cursor",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, parentBody([]testNode{node("1", "a", 0)}, true, ""))
			},
			wantType: ErrorTypeTransport, sentinel: ErrTransport, code: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.handler)

			_, err := client.FetchPage(context.Background(), testFetchContext(), "")
			require.Error(t, err)

			var igErr *Error
			require.ErrorAs(t, err, &igErr)
			assert.Equal(t, tt.wantType, igErr.Type)
			assert.Equal(t, tt.code, igErr.Code)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.wantType, TypeOf(err))
		})
	}
}

func TestFetchPageLoginRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql/query/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/accounts/login/?next=/graphql/query/", http.StatusFound)
	})
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>Login • Instagram</html>"))
	})
	client, _ := newTestServer(t, mux.ServeHTTP)

	_, err := client.FetchPage(context.Background(), testFetchContext(), "")
	assert.True(t, IsAuth(err), "got %v", err)
	assert.Contains(t, err.Error(), "SESSIONID")
}

func TestFetchPageNeverRetries(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		var hits int32
		client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(status)
		})

		_, err := client.FetchPage(context.Background(), testFetchContext(), "")
		assert.Error(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "status %d", status)
	}
}

func TestFetchPageNetworkError(t *testing.T) {
	client := NewClient(time.Second, logger.NewNopLogger(), WithHTTPClient(&http.Client{
		Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}},
	}))

	_, err := client.FetchPage(context.Background(), testFetchContext(), "")
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchPageCancelledContext(t *testing.T) {
	var hits int32
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, parentBody(nil, false, ""))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, testFetchContext(), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFetchPageValidation(t *testing.T) {
	client := NewClient(time.Second, logger.NewNopLogger())

	tests := []struct {
		name   string
		mutate func(*comments.FetchContext)
	}{
		{"no shortcode", func(fc *comments.FetchContext) { fc.Shortcode = "" }},
		{"no credentials", func(fc *comments.FetchContext) { fc.Credentials = nil }},
		{"zero per page", func(fc *comments.FetchContext) { fc.PerPage = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := testFetchContext()
			tt.mutate(&fc)
			_, err := client.FetchPage(context.Background(), fc, "")
			assert.Error(t, err)
			assert.Empty(t, TypeOf(err))
		})
	}
}

func TestRateLimitIsLogged(t *testing.T) {
	client, log := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchPage(context.Background(), testFetchContext(), "")
	require.True(t, IsRateLimit(err))

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "Rate limit reached, stopping run", warns[0].Message)
	assert.Equal(t, "Cabc", warns[0].Fields["target"])
}

func TestFetchAllReplies(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RepliesQueryHash, r.URL.Query().Get("query_hash"))
		vars := variables(t, r)
		assert.Equal(t, "p1", vars["comment_id"])

		switch vars["after"] {
		case nil:
			writeJSON(w, replyBody([]testNode{node("r1", "x", 1), node("r2", "y", 0)}, true, "c2"))
		case "c2":
			writeJSON(w, replyBody([]testNode{node("r3", "z", 5)}, false, ""))
		default:
			t.Errorf("unexpected cursor %v", vars["after"])
		}
	})

	replies, err := client.FetchAllReplies(context.Background(), testFetchContext(), "p1")
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, []string{replies[0].ID, replies[1].ID, replies[2].ID})
	assert.Equal(t, "z", replies[2].Username)
	assert.Equal(t, 5, replies[2].LikeCount)
}

func TestFetchAllRepliesKeepsPartialResults(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := variables(t, r)["after"]; !ok {
			writeJSON(w, replyBody([]testNode{node("r1", "x", 0), node("r2", "y", 0)}, true, "c2"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	replies, err := client.FetchAllReplies(context.Background(), testFetchContext(), "p1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "reply page 2")
	assert.Len(t, replies, 2)
}

func TestErrorFatalClassification(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeAuth, true},
		{ErrorTypeNotFound, false},
		{ErrorTypeTransport, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			err := fmt.Errorf("reply page 1 of comment p1: %w", newError(tt.errType, 0, "boom", nil))

			var fatal comments.FatalError
			require.True(t, errors.As(err, &fatal))
			assert.Equal(t, tt.want, fatal.Fatal())
		})
	}
}

func TestFetchAllRepliesRateLimitIsFatal(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := variables(t, r)["after"]; !ok {
			writeJSON(w, replyBody([]testNode{node("r1", "x", 0)}, true, "c2"))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	replies, err := client.FetchAllReplies(context.Background(), testFetchContext(), "p1")
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
	assert.Len(t, replies, 1)

	var fatal comments.FatalError
	require.True(t, errors.As(err, &fatal))
	assert.True(t, fatal.Fatal())
}

func TestFetchReplyPageMissingComment(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"status": "ok", "data": map[string]interface{}{"comment": nil}})
	})

	_, err := client.FetchReplyPage(context.Background(), testFetchContext(), "p1", "")
	assert.True(t, IsNotFound(err))

	_, err = client.FetchReplyPage(context.Background(), testFetchContext(), "", "")
	assert.Error(t, err)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveRequest(stream comments.Stream, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, string(stream)+":"+outcome)
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

func TestObserverAndPacer(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("query_hash") == RepliesQueryHash {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, parentBody(nil, false, ""))
	}))
	defer srv.Close()

	observer := &recordingObserver{}
	limiter := &countingLimiter{}
	client := NewClient(time.Second, logger.NewNopLogger(),
		WithBaseURL(srv.URL+"/"), WithObserver(observer), WithPacer(limiter))

	_, err := client.FetchPage(context.Background(), testFetchContext(), "")
	require.NoError(t, err)
	_, err = client.FetchAllReplies(context.Background(), testFetchContext(), "p1")
	require.Error(t, err)

	assert.Equal(t, 2, limiter.waits)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"parents:ok", "replies:rate_limit"}, observer.outcomes)
}

func TestClientImplementsFetchers(t *testing.T) {
	var _ comments.PageFetcher = (*Client)(nil)
	var _ comments.ReplyFetcher = (*Client)(nil)
}
