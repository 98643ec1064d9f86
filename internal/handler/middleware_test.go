package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newMiddlewareRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"request_id": c.GetString(ContextKeyRequestID)})
	})
	r.GET("/boom", func(c *gin.Context) {
		panic("炸了")
	})
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newMiddlewareRouter()

	t.Run("无请求ID时自动生成并回写响应头", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		rid := w.Header().Get(HeaderRequestID)
		assert.True(t, strings.HasPrefix(rid, "REQ"), rid)
	})

	t.Run("客户端自带请求ID原样透传", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderRequestID, "REQ_CLIENT_001")
		r.ServeHTTP(w, req)

		assert.Equal(t, "REQ_CLIENT_001", w.Header().Get(HeaderRequestID))
		assert.Contains(t, w.Body.String(), "REQ_CLIENT_001")
	})

	t.Run("panic恢复响应携带请求ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		req.Header.Set(HeaderRequestID, "REQ_CLIENT_002")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "REQ_CLIENT_002")
	})
}

func TestCallerIdentity(t *testing.T) {
	identity := func(rawQuery string) string {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/account/info?"+rawQuery, nil)
		return callerIdentity(c)
	}

	assert.Equal(t, "1001", identity("user_id=1001"))
	assert.Equal(t, "10000", identity("caller_id=10000"))
	assert.Equal(t, "employer:88", identity("employer_id=88"))
	assert.Equal(t, "-", identity(""))
}
