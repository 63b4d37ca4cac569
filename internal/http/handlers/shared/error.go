package shared

import (
	"errors"

	"github.com/soundmarket/internal/http/response"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	switch appErr.Code {
	case response.CodeBadRequest:
		response.BadRequest(c, appErr.Message)
	case response.CodeUnauthorized:
		response.Unauthorized(c, appErr.Message)
	case response.CodeNotFound:
		response.NotFound(c, appErr.Message)
	default:
		response.Error(c, appErr.Code, appErr.Message)
	}
}

// MappedError 定义业务错误到接口错误码的映射关系。
type MappedError struct {
	Target error
	Code   int
}

// serviceErrorRules 业务错误分类根的默认映射
var serviceErrorRules = []MappedError{
	{Target: service.ErrValidation, Code: response.CodeBadRequest},
	{Target: service.ErrNotFound, Code: response.CodeNotFound},
	{Target: service.ErrConflict, Code: response.CodeConflict},
}

// RespondServiceError 按错误分类返回响应，未识别的错误返回 500 并记录日志。
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	for _, rule := range serviceErrorRules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, err.Error(), nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
