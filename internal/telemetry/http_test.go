package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/jackpot/internal/telemetry"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := telemetry.NewMetrics(prometheus.NewRegistry())

	var seen string
	e := gin.New()
	e.Use(telemetry.GinMiddleware(m))
	e.GET("/things/:id", func(c *gin.Context) {
		seen = telemetry.RequestID(c.Request.Context())
		c.Status(http.StatusTeapot)
	})

	tests := map[string]struct {
		header string
		assert func(t *testing.T, got string)
	}{
		"generates an id": {
			assert: func(t *testing.T, got string) {
				assert.Len(t, got, 36)
			},
		},
		"keeps the caller's id": {
			header: "req-1",
			assert: func(t *testing.T, got string) {
				assert.Equal(t, "req-1", got)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/things/1", nil)
			if tt.header != "" {
				req.Header.Set(telemetry.RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()

			e.ServeHTTP(w, req)

			require.Equal(t, http.StatusTeapot, w.Code)
			got := w.Header().Get(telemetry.RequestIDHeader)
			tt.assert(t, got)
			assert.Equal(t, got, seen)
		})
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/things/:id", "418")))
}

func TestGinMiddleware_NoMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(telemetry.GinMiddleware(nil))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(telemetry.RequestIDHeader))
}
