package public

import (
	"strings"

	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// VerifyCertificate 按证书编号公开验证认证
func (h *Handler) VerifyCertificate(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		respondError(c, response.CodeBadRequest, "证书编号不能为空", nil)
		return
	}
	cert, err := h.CertificationEngine.GetByNumber(number)
	if err != nil {
		respondServiceError(c, err, "证书验证失败")
		return
	}
	doc, err := h.CertificateRenderer.Render(c.Request.Context(), cert)
	if err != nil {
		respondError(c, response.CodeInternal, "证书验证失败", err)
		return
	}
	response.Success(c, doc)
}
