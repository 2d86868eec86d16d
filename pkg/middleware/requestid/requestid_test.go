package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRouter(captured *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		*captured = Value(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	var captured string
	r := newRouter(&captured)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderKey, "abc-123")

	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", captured)
	require.Equal(t, "abc-123", w.Header().Get(HeaderKey))
}

func TestMiddlewareGeneratesUUID(t *testing.T) {
	var captured string
	r := newRouter(&captured)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderKey, strings.Repeat("x", 200))

	r.ServeHTTP(w, req)

	_, err := uuid.Parse(captured)
	require.NoError(t, err)
	require.Equal(t, captured, w.Header().Get(HeaderKey))
}
