package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"CompanionGuard/pkg/errors"
	"CompanionGuard/pkg/response"
	"CompanionGuard/pkg/util"

	"github.com/gin-gonic/gin"
)

const CodeBadSignature = 4010

// SignVerifyMiddleware API 签名验证中间件。签名见 util.Sign，时间戳为 Unix
// 秒，与服务端时间相差超过 maxSkew 的请求被拒绝
func SignVerifyMiddleware(secret string, maxSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader("Signature")
		timestamp := c.GetHeader("X-Timestamp")
		if signature == "" || timestamp == "" {
			response.AbortWithStatus(c, http.StatusUnauthorized, CodeBadSignature, "signature is missing")
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			response.AbortWithStatus(c, http.StatusBadRequest, errors.CodeInvalidArgument, "invalid timestamp")
			return
		}
		if skew := time.Since(time.Unix(ts, 0)); skew > maxSkew || skew < -maxSkew {
			response.AbortWithStatus(c, http.StatusUnauthorized, CodeBadSignature, "timestamp out of range")
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		if !util.VerifySign(signature, c.Request.Method, c.Request.URL.Path, body, timestamp, secret) {
			response.AbortWithStatus(c, http.StatusUnauthorized, CodeBadSignature, "invalid signature")
			return
		}
		c.Next()
	}
}
