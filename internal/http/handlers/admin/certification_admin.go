package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"

	"github.com/gin-gonic/gin"
)

const evaluateAllUniqueWindow = 10 * time.Minute

// GetCertifications 分页查询认证记录
func (h *Handler) GetCertifications(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	itemID, ok := handlershared.ParseUintQuery(c, "item_id")
	if !ok {
		return
	}
	ownerID, ok := handlershared.ParseUintQuery(c, "owner_id")
	if !ok {
		return
	}
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	certs, total, err := h.CertificationEngine.List(repository.CertificationListFilter{
		Page:       page,
		PageSize:   pageSize,
		ItemID:     itemID,
		OwnerID:    ownerID,
		Tier:       strings.ToLower(strings.TrimSpace(c.Query("tier"))),
		ActiveOnly: activeOnly,
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取认证列表失败", err)
		return
	}
	response.SuccessWithPage(c, certs, handlershared.BuildPagination(page, pageSize, total))
}

// GetItemCertifications 获取作品的全部认证
func (h *Handler) GetItemCertifications(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	certs, err := h.CertificationEngine.ListByItem(itemID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取认证列表失败", err)
		return
	}
	response.Success(c, certs)
}

// EvaluateItemCertification 同步评估单个作品的认证
func (h *Handler) EvaluateItemCertification(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	result, err := h.CertificationEngine.EvaluateItem(c.Request.Context(), itemID, force)
	if err != nil {
		respondServiceError(c, err, "认证评估失败")
		return
	}
	response.Success(c, result)
}

// EvaluateAllCertifications 触发全量认证评估
// 队列可用时异步执行，否则在请求内同步执行并返回汇总。
func (h *Handler) EvaluateAllCertifications(c *gin.Context) {
	operator, ok := getAdminSubject(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	if h.QueueClient.Enabled() {
		payload := queue.CertificationEvaluateAllPayload{Force: force, RequestedBy: operator}
		if err := h.QueueClient.EnqueueCertificationEvaluateAll(payload, evaluateAllUniqueWindow); err != nil {
			respondError(c, response.CodeInternal, "认证评估任务推送失败", err)
			return
		}
		requestLog(c).Infow("admin_certification_evaluate_all_enqueued", "operator", operator, "force", force)
		response.SuccessWithMsg(c, "认证评估任务已加入队列", gin.H{"queued": true})
		return
	}

	summary, err := h.CertificationEngine.EvaluateAll(c.Request.Context(), force)
	if err != nil {
		respondServiceError(c, err, "认证评估失败")
		return
	}
	response.Success(c, gin.H{
		"queued":  false,
		"summary": summary,
	})
}

// ActivateCertification 重新启用认证
func (h *Handler) ActivateCertification(c *gin.Context) {
	h.setCertificationActive(c, true)
}

// DeactivateCertification 停用认证（记录保留）
func (h *Handler) DeactivateCertification(c *gin.Context) {
	h.setCertificationActive(c, false)
}

func (h *Handler) setCertificationActive(c *gin.Context, active bool) {
	operator, ok := getAdminSubject(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	cert, err := h.CertificationEngine.SetActive(id, active)
	if err != nil {
		respondServiceError(c, err, "更新认证状态失败")
		return
	}
	requestLog(c).Infow("admin_certification_active_changed",
		"certification_id", id,
		"is_active", active,
		"operator", operator,
	)
	response.Success(c, cert)
}

// GetCertificateDocument 获取认证证书的可打印文档数据
func (h *Handler) GetCertificateDocument(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.CertificateRenderer.RenderByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "生成证书文档失败")
		return
	}
	response.Success(c, doc)
}
