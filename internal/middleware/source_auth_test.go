package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authedRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SourceAuth(token))
	router.POST("/callback", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestSourceAuthAcceptsValidToken(t *testing.T) {
	router := authedRouter("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/callback", nil)
	req.Header.Set(SourceTokenHeader, "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSourceAuthRejectsBadToken(t *testing.T) {
	router := authedRouter("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/callback", nil)
	req.Header.Set(SourceTokenHeader, "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSourceAuthRejectsMissingToken(t *testing.T) {
	router := authedRouter("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/callback", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSourceAuthDisabledWhenUnconfigured(t *testing.T) {
	router := authedRouter("")

	req := httptest.NewRequest(http.MethodPost, "/callback", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
