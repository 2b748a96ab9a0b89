package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAPIURLJoinsPrefix(t *testing.T) {
	cfg := Config{APIBaseURL: "http://localhost:8000", APIPrefix: "/api"}
	assert.Equal(t, "http://localhost:8000/api/orders", cfg.apiURL("/orders"))
	assert.Equal(t, "http://localhost:8000/api/save-chat-id", cfg.apiURL("/save-chat-id"))

	cfg = Config{APIBaseURL: "http://localhost:8000/", APIPrefix: "api/"}
	assert.Equal(t, "http://localhost:8000/api/orders", cfg.apiURL("/orders"))

	cfg = Config{APIBaseURL: "http://localhost:8000"}
	assert.Equal(t, "http://localhost:8000/orders", cfg.apiURL("/orders"))
}

func TestCompletedOrdersTextQueriesPrefixedRoute(t *testing.T) {
	var gotPath, gotTelegram string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTelegram = r.URL.Query().Get("telegram")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"orders":[
			{"id":"0f1e2d3c-4b5a","title":"Лабораторная 3","status":"completed","files":["work.pdf","report.pdf"]},
			{"id":"aaaa","title":"В работе","status":"in_progress","files":[]},
			{"id":"bbbb","title":"Без файлов","status":"completed","files":[]}
		],"total":3}}`))
	}))
	defer server.Close()

	b := New(nil, Config{APIBaseURL: server.URL, APIPrefix: "/api"}, nil)
	text, err := b.completedOrdersText(context.Background(), "ivan")
	require.NoError(t, err)

	assert.Equal(t, "/api/orders", gotPath)
	assert.Equal(t, "ivan", gotTelegram)

	// Only completed orders with files are listed.
	assert.Contains(t, text, "Заказ #0f1e2d3c: Лабораторная 3 — файлов: 2")
	assert.NotContains(t, text, "В работе")
	assert.NotContains(t, text, "Без файлов")
}

func TestCompletedOrdersTextLookupFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	b := New(nil, Config{APIBaseURL: server.URL, APIPrefix: "/api"}, nil)
	_, err := b.completedOrdersText(context.Background(), "ivan")
	require.Error(t, err)
}

func TestCompletedOrdersTextEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"orders":[],"total":0}}`))
	}))
	defer server.Close()

	b := New(nil, Config{APIBaseURL: server.URL, APIPrefix: "/api"}, nil)
	text, err := b.completedOrdersText(context.Background(), "ivan")
	require.NoError(t, err)
	assert.Empty(t, text)
}
