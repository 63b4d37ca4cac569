package service

import (
	"context"
	"strings"
	"time"

	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"
)

// CertificateDocument 可打印证书载荷（版式由外部渲染）
type CertificateDocument struct {
	CertificateNumber string    `json:"certificate_number"`
	Tier              string    `json:"tier"`
	TierRank          int       `json:"tier_rank"`
	ItemID            uint      `json:"item_id"`
	ItemType          string    `json:"item_type"`
	ItemTitle         string    `json:"item_title"`
	OwnerID           uint      `json:"owner_id"`
	OwnerName         string    `json:"owner_name"`
	MetricSource      string    `json:"metric_source"`
	MetricValue       int64     `json:"metric_value"`
	ThresholdReached  int64     `json:"threshold_reached"`
	AchievedAt        time.Time `json:"achieved_at"`
	IsActive          bool      `json:"is_active"`
	Issuer            string    `json:"issuer"`
	VerifyPath        string    `json:"verify_path"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// CertificateRenderer 证书文档渲染接口
type CertificateRenderer interface {
	Render(ctx context.Context, cert *models.Certification) (*CertificateDocument, error)
}

// DocumentCertificateRenderer 基于作品与所有者元数据生成证书文档
type DocumentCertificateRenderer struct {
	certRepo repository.CertificationRepository
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
	issuer   string
}

// NewDocumentCertificateRenderer 创建证书渲染器
func NewDocumentCertificateRenderer(
	certRepo repository.CertificationRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
	issuer string,
) *DocumentCertificateRenderer {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "soundmarket"
	}
	return &DocumentCertificateRenderer{
		certRepo: certRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		issuer:   issuer,
	}
}

// Render 渲染证书文档
func (r *DocumentCertificateRenderer) Render(_ context.Context, cert *models.Certification) (*CertificateDocument, error) {
	if cert == nil {
		return nil, ErrCertificationNotFound
	}
	item := cert.Item
	if item == nil {
		loaded, err := r.itemRepo.GetByID(cert.ItemID)
		if err != nil {
			return nil, err
		}
		item = loaded
	}
	doc := &CertificateDocument{
		CertificateNumber: cert.CertificateNumber,
		Tier:              cert.Tier,
		TierRank:          cert.TierRank,
		ItemID:            cert.ItemID,
		OwnerID:           cert.OwnerID,
		MetricSource:      cert.MetricSource,
		MetricValue:       cert.MetricValue,
		ThresholdReached:  cert.ThresholdReached,
		AchievedAt:        cert.AchievedAt,
		IsActive:          cert.IsActive,
		Issuer:            r.issuer,
		VerifyPath:        "/api/v1/certificates/" + cert.CertificateNumber,
		GeneratedAt:       time.Now(),
	}
	if item != nil {
		doc.ItemType = item.ItemType
		doc.ItemTitle = item.Title
		if item.Owner != nil {
			doc.OwnerName = item.Owner.DisplayName
		}
	}
	if doc.OwnerName == "" && r.userRepo != nil {
		owner, err := r.userRepo.GetByID(cert.OwnerID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			doc.OwnerName = owner.DisplayName
		}
	}
	return doc, nil
}

// RenderByID 按认证ID渲染证书文档
func (r *DocumentCertificateRenderer) RenderByID(ctx context.Context, id uint) (*CertificateDocument, error) {
	cert, err := r.certRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificationNotFound
	}
	return r.Render(ctx, cert)
}
