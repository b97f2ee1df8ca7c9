package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"sushiorders/config"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen *logrus.Entry
	h := Middleware("test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	id := rr.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	if assert.NotNil(t, seen) {
		assert.Equal(t, id, seen.Data["request_id"])
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	h := Middleware("test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}

func TestFromContextWithoutEntry(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestInitLevel(t *testing.T) {
	Init(config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	Init(config.Config{LogLevel: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
