package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthzHandler(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		want      int
	}{
		{
			name:      "connected",
			connected: true,
			want:      http.StatusOK,
		},
		{
			name:      "disconnected",
			connected: false,
			want:      http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(0, func() bool { return tt.connected })

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			s.healthzHandler(w, r)

			if w.Code != tt.want {
				t.Errorf("healthzHandler() status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
