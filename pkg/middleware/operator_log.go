package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const OperatorHeader = "X-Operator"

// OperationLog 专业人员对警报的操作记录
type OperationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Operator  string    `json:"operator" gorm:"size:128;index"`
	Action    string    `json:"action" gorm:"size:16"`
	Target    string    `json:"target" gorm:"size:255"`
	Status    int       `json:"status"`
	IPAddress string    `json:"ipAddress" gorm:"size:64"`
	Device    string    `json:"device" gorm:"size:64"`
	Browser   string    `json:"browser" gorm:"size:64"`
	OS        string    `json:"os" gorm:"size:64"`
	CreatedAt time.Time `json:"createdAt"`
}

func (OperationLog) TableName() string { return "crisis_operation_logs" }

// OperationLogMiddleware 记录操作日志。写入失败只记日志，不影响请求
func OperationLogMiddleware(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		ua := user_agent.New(c.Request.UserAgent())
		browser, version := ua.Browser()
		entry := OperationLog{
			Operator:  c.GetHeader(OperatorHeader),
			Action:    c.Request.Method,
			Target:    c.Request.URL.Path,
			Status:    c.Writer.Status(),
			IPAddress: c.ClientIP(),
			Device:    ua.Platform(),
			Browser:   browser + " " + version,
			OS:        ua.OS(),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Warn("record operation log failed", zap.Error(err), zap.String("target", entry.Target))
		}
	}
}
