// integration_test.go contains an end-to-end integration test suite for the CRUD API.
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"itemcrud/internal/activity"
	"itemcrud/internal/item"
	"itemcrud/internal/metrics"
	"itemcrud/internal/service"
	"itemcrud/internal/store"
)

// testAPIKey is the static API key used to authenticate integration test requests.
const testAPIKey = "test-integration-key"

type testServer struct {
	url      string
	client   *http.Client
	redis    *miniredis.Miniredis
	recorder *activity.Recorder
}

// newTestServer starts the real router over a Redis store backed by miniredis.
func newTestServer(t *testing.T, apiKeys ...string) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zaptest.NewLogger(t)

	st := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger)
	t.Cleanup(func() { _ = st.Close() })

	recorder := activity.NewRecorder(activity.DefaultCapacity)
	collector := metrics.NewCollector("itemcrud", recorder.Len)
	items := service.NewItemService(st, recorder, collector, logger)
	handler := NewHandler(items, recorder, st, logger)

	srv := httptest.NewServer(newRouter(handler, collector, routerConfig{
		CORSOrigins: []string{"*"},
		APIKeys:     apiKeys,
	}, logger))
	t.Cleanup(srv.Close)

	client := http.DefaultClient
	if len(apiKeys) > 0 {
		client = &http.Client{Transport: &authTransport{token: apiKeys[0], base: http.DefaultTransport}}
	}
	return &testServer{url: srv.URL, client: client, redis: mr, recorder: recorder}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, body string, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp
}

// TestCRUDIntegration exercises create, activity, update, delete and the
// follow-up 404.
func TestCRUDIntegration(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	// CREATE
	var created item.Item
	resp := s.do(t, http.MethodPost, "/items", `{"name":"Widget","description":"blue"}`, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/items/"+created.ID, resp.Header.Get("Location"))
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, []string{}, created.Tags)
	assert.Equal(t, []item.Comment{}, created.Comments)
	assert.Equal(t, []item.Review{}, created.Reviews)
	assert.Equal(t, created.CreatedAt, created.LastModified)

	var entries []activity.Entry
	s.do(t, http.MethodGet, "/activity", "", &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.ActionCreate, entries[0].Action)
	assert.Equal(t, "Widget", entries[0].Item.Name)

	// READ
	var got item.Item
	resp = s.do(t, http.MethodGet, "/items/"+created.ID, "", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, got.ID)

	// UPDATE
	var updated item.Item
	resp = s.do(t, http.MethodPut, "/items/"+created.ID,
		`{"name":"Widget2","tags":"not-a-list","details":{"manufacturer":"Acme","warrantyPeriod":"24"}}`, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Widget2", updated.Name)
	assert.Equal(t, []string{}, updated.Tags)
	require.NotNil(t, updated.Details.WarrantyPeriod)
	assert.Equal(t, 24.0, *updated.Details.WarrantyPeriod)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.LastModified.Before(updated.CreatedAt))

	s.do(t, http.MethodGet, "/activity", "", &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.ActionUpdate, entries[1].Action)
	assert.Equal(t, "Widget2", entries[1].Item.Name)

	// LIST
	var list []item.Item
	s.do(t, http.MethodGet, "/items", "", &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Widget2", list[0].Name)

	// DELETE
	var msg messageResponse
	resp = s.do(t, http.MethodDelete, "/items/"+created.ID, "", &msg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Item deleted", msg.Message)

	var errResp errorResponse
	resp = s.do(t, http.MethodGet, "/items/"+created.ID, "", &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Item not found", errResp.Error)

	s.do(t, http.MethodGet, "/activity", "", &entries)
	require.Len(t, entries, 3)
	assert.Equal(t, activity.ActionDelete, entries[2].Action)
	assert.Equal(t, "Widget2", entries[2].Item.Name)

	list = nil
	s.do(t, http.MethodGet, "/items", "", &list)
	assert.Empty(t, list)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"a", "b", "c"} {
		resp := s.do(t, http.MethodPost, "/items", `{"name":"`+name+`"}`, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var list []item.Item
	s.do(t, http.MethodGet, "/items", "", &list)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
	assert.Equal(t, "c", list[2].Name)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"description":"x"}`, "name"},
		{"blank name", `{"name":"   "}`, "name"},
		{"null name", `{"name":null}`, "name"},
		{"malformed body", `{"name":`, "body"},
		{"trailing data", `{"name":"a"}{"name":"b"}`, "body"},
		{"bad comment", `{"name":"a","comments":[{"text":""}]}`, "comments[0].text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp errorResponse
			resp := s.do(t, http.MethodPost, "/items", tt.body, &errResp)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, errResp.Error)
			require.NotEmpty(t, errResp.Violations)
			assert.Equal(t, tt.field, errResp.Violations[0].Field)
		})
	}

	var entries []activity.Entry
	s.do(t, http.MethodGet, "/activity", "", &entries)
	assert.Empty(t, entries)
}

func TestCreateConvertsScalars(t *testing.T) {
	s := newTestServer(t)

	var created item.Item
	resp := s.do(t, http.MethodPost, "/items",
		`{"name":5,"tags":[1,2],"reviews":[{"rating":"5","date":"2024-01-01"}]}`, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "5", created.Name)
	assert.Equal(t, []string{"1", "2"}, created.Tags)
	require.Len(t, created.Reviews, 1)
	require.NotNil(t, created.Reviews[0].Rating)
	assert.Equal(t, 5.0, *created.Reviews[0].Rating)
	require.NotNil(t, created.Reviews[0].Date)
	assert.Equal(t, 2024, created.Reviews[0].Date.Year())

	var errResp errorResponse
	resp = s.do(t, http.MethodPost, "/items", `{"name":{"first":"a"}}`, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, errResp.Violations, 1)
	assert.Equal(t, item.ReasonInvalid, errResp.Violations[0].Reason)
}

func TestUpdateMissingItem(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPut, "/items/nope", `{"name":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/items/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, s.recorder.Len())
}

func TestComments(t *testing.T) {
	s := newTestServer(t)

	var created item.Item
	s.do(t, http.MethodPost, "/items", `{"name":"Widget"}`, &created)

	var c item.Comment
	resp := s.do(t, http.MethodPost, "/items/"+created.ID+"/comments", `{"text":"nice"}`, &c)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, item.DefaultCommentUser, c.User)
	assert.Equal(t, "nice", c.Text)
	assert.False(t, c.Date.IsZero())

	resp = s.do(t, http.MethodPost, "/items/"+created.ID+"/comments", `{"user":"bob","text":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/items/missing/comments", `{"text":"hi"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var got item.Item
	s.do(t, http.MethodGet, "/items/"+created.ID, "", &got)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "nice", got.Comments[0].Text)

	// Comments are not mutations of the item record.
	assert.Equal(t, 1, s.recorder.Len())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testAPIKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, s.url+"/items", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	// Health and metrics stay public.
	resp, err := http.Get(s.url + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	var health healthResponse
	resp := s.do(t, http.MethodGet, "/health", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)

	s.do(t, http.MethodPost, "/items", `{"name":"Widget"}`, nil)

	resp, err := http.Get(s.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `itemcrud_item_mutations_total{action="CREATE"} 1`)
	assert.Contains(t, string(body), "itemcrud_activity_entries 1")
	assert.Contains(t, string(body), `route="/items/"`)

	s.redis.Close()
	resp = s.do(t, http.MethodGet, "/health", "", &health)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", health.Status)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	s := newTestServer(t)
	s.redis.Close()

	var errResp errorResponse
	resp := s.do(t, http.MethodGet, "/items", "", &errResp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", errResp.Error)
}

// authTransport injects the test API key into outgoing HTTP requests.
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}
