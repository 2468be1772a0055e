package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"vaultindex/internal/indexer/mocks"
	"vaultindex/internal/search"
)

func TestSearchHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	handler := NewSearchHandler(engine)

	t.Run("returns hits", func(t *testing.T) {
		engine.EXPECT().Search(gomock.Any(), "brown fox").Return([]search.Hit{
			{Path: "/vault/fox.md", Title: "Foxes", Highlight: "quick <mark>brown</mark> <mark>fox</mark>"},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/search?q=brown+fox", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp SearchResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Query != "brown fox" || len(resp.Hits) != 1 || resp.Hits[0].Title != "Foxes" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		engine.EXPECT().Search(gomock.Any(), "nothing").Return([]search.Hit{})

		req := httptest.NewRequest(http.MethodGet, "/api/search?q=nothing", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Body.String(); got != "{\"query\":\"nothing\",\"hits\":[]}\n" {
			t.Errorf("body = %q", got)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?q=%20", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search?q=x", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
	})
}
