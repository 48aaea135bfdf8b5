package response

import (
	"net/http"

	"CompanionGuard/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: msg, Data: data})
}

// Fail 参数错误等客户端错误，HTTP 400
func Fail(c *gin.Context, msg string, data interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{Code: errors.CodeInvalidArgument, Msg: msg, Data: data})
}

// AbortWithStatus writes the envelope with an explicit HTTP status.
func AbortWithStatus(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, Body{Code: code, Msg: msg})
}

// HTTPStatus maps a coded error to its HTTP status.
func HTTPStatus(code int) int {
	switch code {
	case errors.CodeInvalidArgument, errors.CodeInvalidSeverity, errors.CodeInvalidSubject:
		return http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeAlertNotFound:
		return http.StatusNotFound
	case errors.CodeConflict, errors.CodeAlreadyNotified, errors.CodeNotYetNotified,
		errors.CodeAlreadyViewed, errors.CodeNotYetViewed, errors.CodeAlreadyResolved,
		errors.CodeConcurrentUpdate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status of its code. Uncoded errors become 500
// with a generic message.
func Error(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := HTTPStatus(code)
	msg := errors.GetMessage(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, Body{Code: code, Msg: msg})
}
