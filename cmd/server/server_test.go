package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragchat/app"
	"ragchat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	a, err := app.New(context.Background(), &config.Config{
		AnthropicAPIKey:  "test",
		VectorStore:      "memory",
		DefaultModel:     "claude",
		MaxTurns:         2,
		ConversationsDir: t.TempDir(),
	})
	require.NoError(t, err)
	defer a.Close()

	router := newRouter(a)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ping", http.StatusOK},
		{http.MethodGet, "/tools", http.StatusOK},
		{http.MethodGet, "/prompts", http.StatusOK},
		{http.MethodGet, "/model", http.StatusOK},
		{http.MethodOptions, "/query", http.StatusOK},
		{http.MethodOptions, "/anything", http.StatusOK},
		{http.MethodGet, "/transcripts", http.StatusNotFound},
		{http.MethodGet, "/unknown", http.StatusNotFound},
		{http.MethodPost, "/tools", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.status >= http.StatusBadRequest {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}
