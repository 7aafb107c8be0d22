package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "conflict", "order_not_payable" },
	}))
	r.POST("/orders/:id", func(c *gin.Context) {
		c.Set("order_number", "ORD-261017-ABCD")
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/orders/1", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/orders/:id", fields["route"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ORD-261017-ABCD", fields["order_number"])
	assert.Equal(t, "order_not_payable", fields["error_code"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/orders", http.StatusInternalServerError))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/payments/callback", http.StatusNotFound))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/orders/:id", http.StatusNotFound))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}
