package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// NewCacheStore 进程内响应缓存
func NewCacheStore(ttl time.Duration) *gocache.Cache {
	return gocache.New(ttl, 2*ttl)
}

// Cache GET 响应缓存，key 含用户 ID，不同用户互不可见
// 只缓存 2xx；ttl <= 0 时不缓存
func Cache(store *gocache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || ttl <= 0 || store == nil {
			c.Next()
			return
		}

		key := c.GetString(CtxUserID) + "|" + c.Request.URL.Path + "?" + stripToken(c)
		if v, found := store.Get(key); found {
			cached := v.(cachedResponse)
			for k, vals := range cached.headers {
				c.Writer.Header()[k] = vals
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		w := &cacheWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = w

		c.Next()

		if status := w.Status(); status >= 200 && status < 300 {
			store.Set(key, cachedResponse{
				status:  status,
				headers: w.Header().Clone(),
				body:    w.body.Bytes(),
			}, ttl)
		}
	}
}

// stripToken 查询串里的 token 不参与缓存 key
func stripToken(c *gin.Context) string {
	q := c.Request.URL.Query()
	q.Del("token")
	return q.Encode()
}
