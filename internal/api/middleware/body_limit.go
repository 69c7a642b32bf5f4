package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guardian/backend/pkg/response"
)

// BodyLimit 请求体大小限制；超限时绑定会失败，这里统一改写为 413
// 工资导入等上传接口在路由上单独放宽
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) && !c.Writer.Written() {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
