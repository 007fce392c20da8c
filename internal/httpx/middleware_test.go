package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/ping", func(c *gin.Context) { OK(c, gin.H{"ok": true}) })
	return r
}

func TestCORS_AllowedOrigin(t *testing.T) {
	req := require.New(t)
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	newRouter().ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Equal("http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	req.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()

	newRouter().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	r := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	newRouter().ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
}
