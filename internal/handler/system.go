package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	// 检查数据库连接
	if h.opts.DB != nil {
		sqlDB, err := h.opts.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
			return
		}
	}

	// 返回健康状态
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"patterns":   h.opts.Pipeline.PatternVersion(),
		"policy":     h.opts.Pipeline.Policy(),
		"dashboards": h.opts.Hub.Clients(),
	})
}
