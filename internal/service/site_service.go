package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 站点模块业务错误 ──

var (
	ErrSiteNotFound = errors.New("站点不存在")
)

// SiteService 执勤站点接口
type SiteService interface {
	Create(ctx context.Context, req *dto.CreateSiteRequest, actorID string) (*dto.SiteResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SiteResponse, error)
	List(ctx context.Context, req *dto.SiteListRequest) ([]dto.SiteResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSiteRequest, actorID string) (*dto.SiteResponse, error)
	Delete(ctx context.Context, id, actorID string) error
}

type siteService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSiteService 创建 SiteService 实例
func NewSiteService(repo *repository.Repository, logger *zap.Logger) SiteService {
	return &siteService{repo: repo, logger: logger}
}

func (s *siteService) Create(ctx context.Context, req *dto.CreateSiteRequest, actorID string) (*dto.SiteResponse, error) {
	site := &model.Site{
		Name:     strings.TrimSpace(req.Name),
		Address:  strings.TrimSpace(req.Address),
		IsActive: true,
	}
	site.CreatedBy = actorPtr(actorID)
	site.UpdatedBy = actorPtr(actorID)

	if err := s.repo.Site.Create(ctx, site); err != nil {
		s.logger.Error("创建站点失败", zap.Error(err))
		return nil, err
	}
	return toSiteResponse(site), nil
}

func (s *siteService) GetByID(ctx context.Context, id string) (*dto.SiteResponse, error) {
	site, err := s.getSite(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSiteResponse(site), nil
}

func (s *siteService) List(ctx context.Context, req *dto.SiteListRequest) ([]dto.SiteResponse, error) {
	sites, err := s.repo.Site.List(ctx, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出站点失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SiteResponse, 0, len(sites))
	for i := range sites {
		result = append(result, *toSiteResponse(&sites[i]))
	}
	return result, nil
}

func (s *siteService) Update(ctx context.Context, id string, req *dto.UpdateSiteRequest, actorID string) (*dto.SiteResponse, error) {
	site, err := s.getSite(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		site.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		site.Address = strings.TrimSpace(*req.Address)
	}
	if req.IsActive != nil {
		site.IsActive = *req.IsActive
	}
	site.UpdatedBy = actorPtr(actorID)

	if err := s.repo.Site.Update(ctx, site); err != nil {
		s.logger.Error("更新站点失败", zap.String("site_id", id), zap.Error(err))
		return nil, err
	}
	return toSiteResponse(site), nil
}

func (s *siteService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Site.Delete(ctx, id, actorID); err != nil {
		if isNotFound(err) {
			return ErrSiteNotFound
		}
		s.logger.Error("删除站点失败", zap.String("site_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *siteService) getSite(ctx context.Context, id string) (*model.Site, error) {
	site, err := s.repo.Site.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.String("site_id", id), zap.Error(err))
		return nil, err
	}
	return site, nil
}

func toSiteResponse(site *model.Site) *dto.SiteResponse {
	return &dto.SiteResponse{
		ID:        site.SiteID,
		Name:      site.Name,
		Address:   site.Address,
		IsActive:  site.IsActive,
		CreatedAt: formatTime(site.CreatedAt),
		UpdatedAt: formatTime(site.UpdatedAt),
	}
}
