package routes_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"gifty/backend/internal/routes"
)

func newEchoRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/echo", routes.BodyLimit(maxBytes), func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestBodyLimit_WithinLimit(t *testing.T) {
	r := newEchoRouter(10)

	req, _ := http.NewRequest("POST", "/echo", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestBodyLimit_ContentLengthTooLarge(t *testing.T) {
	r := newEchoRouter(4)

	req, _ := http.NewRequest("POST", "/echo", strings.NewReader("hello world"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Uploaded file is too large")
}

func TestBodyLimit_UnknownLengthIsCapped(t *testing.T) {
	r := newEchoRouter(4)

	req, _ := http.NewRequest("POST", "/echo", io.NopCloser(strings.NewReader("hello world")))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyLimit_Disabled(t *testing.T) {
	r := newEchoRouter(0)

	req, _ := http.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 1024)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Body.String(), 1024)
}
