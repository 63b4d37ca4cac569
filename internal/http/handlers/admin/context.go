package admin

import (
	"strings"
	"time"

	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// getAdminSubject 读取管理端令牌中的操作人标识
func getAdminSubject(c *gin.Context) (string, bool) {
	return handlershared.GetContextString(c, "admin_subject")
}

// parseTimeQuery 解析可选的时间查询参数，支持 RFC3339 与 yyyy-mm-dd
func parseTimeQuery(c *gin.Context, name string, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, true
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		respondError(c, response.CodeBadRequest, "无效的 "+name+" 参数", nil)
		return nil, false
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, true
}
