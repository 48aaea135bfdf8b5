package middleware

import (
	"CompanionGuard/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const LanguagesKey = "langs"

// LanguageMiddleware 解析 ?lang= 与 Accept-Language，按优先级存入上下文
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(LanguagesKey, i18n.Negotiate(c.Query("lang"), c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// Languages returns what LanguageMiddleware stored, if anything.
func Languages(c *gin.Context) []string {
	v, ok := c.Get(LanguagesKey)
	if !ok {
		return nil
	}
	langs, _ := v.([]string)
	return langs
}
