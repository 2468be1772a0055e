package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"vaultindex/internal/indexer"
	"vaultindex/internal/indexer/mocks"
	"vaultindex/internal/storage"
)

func TestBacklinksHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	handler := NewBacklinksHandler(engine)

	t.Run("lists linking files", func(t *testing.T) {
		engine.EXPECT().Backlinks(gomock.Any(), "Note B").Return([]string{"/vault/a.md"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/backlinks?page=Note+B", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		var resp BacklinksResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if w.Code != http.StatusOK || len(resp.Backlinks) != 1 || resp.Backlinks[0] != "/vault/a.md" {
			t.Errorf("got %d %+v", w.Code, resp)
		}
	})

	t.Run("no backlinks is an empty list", func(t *testing.T) {
		engine.EXPECT().Backlinks(gomock.Any(), "lonely").Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/backlinks?page=lonely", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Body.String(); got != "{\"page\":\"lonely\",\"backlinks\":[]}\n" {
			t.Errorf("body = %q", got)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/backlinks", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("engine stopped", func(t *testing.T) {
		engine.EXPECT().Backlinks(gomock.Any(), "x").Return(nil, indexer.ErrNotRunning)

		req := httptest.NewRequest(http.MethodGet, "/api/backlinks?page=x", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

// withURLParam attaches a chi route parameter to r.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestBlocksHandler_FanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	handler := NewBlocksHandler(engine)

	engine.EXPECT().BlockFanOut(gomock.Any(), "abc123").Return(4, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/blocks/abc123/fanout", nil), "hash", "abc123")
	w := httptest.NewRecorder()
	handler.FanOut(w, req)

	var resp FanOutResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Hash != "abc123" || resp.Files != 4 {
		t.Errorf("response = %+v, want abc123/4", resp)
	}
}

func TestBlocksHandler_Search(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		mockSetup  func(*mocks.MockEngine)
		wantStatus int
		wantBlocks int
	}{
		{
			name:  "prefix match",
			query: "?prefix=hel&limit=5",
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().SearchBlocks(gomock.Any(), "hel", 5).Return([]storage.Block{
					{Hash: "h1", Content: "hello"},
					{Hash: "h2", Content: "help"},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBlocks: 2,
		},
		{
			name:  "default limit",
			query: "?prefix=x",
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().SearchBlocks(gomock.Any(), "x", 0).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing prefix",
			mockSetup:  func(m *mocks.MockEngine) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad limit",
			query:      "?prefix=x&limit=-2",
			mockSetup:  func(m *mocks.MockEngine) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "storage failure",
			query: "?prefix=x",
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().SearchBlocks(gomock.Any(), "x", 0).Return(nil, errors.New("disk gone"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := mocks.NewMockEngine(ctrl)
			tt.mockSetup(engine)

			handler := NewBlocksHandler(engine)
			req := httptest.NewRequest(http.MethodGet, "/api/blocks"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.Search(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp BlockSearchResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Blocks) != tt.wantBlocks {
				t.Errorf("blocks = %d, want %d", len(resp.Blocks), tt.wantBlocks)
			}
		})
	}
}

func TestStatsHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().Stats(gomock.Any()).Return(&indexer.IndexStats{Files: 2, Links: 1, SearchDocuments: 2}, nil)

	handler := NewStatsHandler(engine)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp indexer.IndexStats
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Files != 2 || resp.Links != 1 || resp.SearchDocuments != 2 {
		t.Errorf("response = %+v", resp)
	}
}
