package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"vaultindex/internal/indexer"
	"vaultindex/internal/indexer/mocks"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		mockSetup  func(*mocks.MockEngine)
		wantStatus int
		wantHealth string
	}{
		{
			name:   "healthy",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().Stats(gomock.Any()).Return(&indexer.IndexStats{FullTextBlocks: true, QueuePending: 3}, nil)
			},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:   "engine stopped",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().Stats(gomock.Any()).Return(nil, indexer.ErrNotRunning)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			mockSetup:  func(m *mocks.MockEngine) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := mocks.NewMockEngine(ctrl)
			tt.mockSetup(engine)

			handler := NewHealthHandler(engine)
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantHealth == "" {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantHealth)
			}
			if tt.wantHealth == "healthy" && (resp.Checks["block_fts"] != "ok" || resp.QueuePending != 3) {
				t.Errorf("response = %+v", resp)
			}
			if tt.wantHealth == "unhealthy" && len(resp.Issues) == 0 {
				t.Error("unhealthy response should list issues")
			}
		})
	}
}
