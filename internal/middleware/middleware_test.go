package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

type MiddlewareSuite struct {
	suite.Suite
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) TestLoggingAssignsRequestID() {
	logger, buf := testutil.CaptureLogger()
	var seen string
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	s.NotEmpty(seen)
	s.Equal(seen, rec.Header().Get(RequestIDHeader))
	s.Contains(buf.String(), `"status":418`)
	s.Contains(buf.String(), seen)
}

func (s *MiddlewareSuite) TestLoggingKeepsIncomingRequestID() {
	h := Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	s.Equal("req-123", rec.Header().Get(RequestIDHeader))
}

func (s *MiddlewareSuite) TestRecoveryLogsAndResponds() {
	logger, buf := testutil.CaptureLogger()
	h := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.True(strings.Contains(buf.String(), "panic recovered"))
	s.Contains(buf.String(), "boom")
}
