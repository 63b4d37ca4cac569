package shared

import (
	"strconv"
	"strings"

	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextString 从上下文读取字符串值，不存在时返回未授权。
func GetContextString(c *gin.Context, key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "未授权", nil)
		return "", false
	}
	text, ok := value.(string)
	if !ok || strings.TrimSpace(text) == "" {
		RespondError(c, response.CodeUnauthorized, "未授权", nil)
		return "", false
	}
	return text, true
}

// ParseUintParam 解析路径中的正整数 ID 参数。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "无效的 "+name+" 参数", nil)
		return 0, false
	}
	return uint(id), true
}

// ParseUintQuery 解析可选的正整数查询参数，缺省返回 0。
func ParseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "无效的 "+name+" 参数", nil)
		return 0, false
	}
	return uint(id), true
}
