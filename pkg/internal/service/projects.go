package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
)

// ProjectService 管理用户的编辑项目.
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService 创建项目服务.
func NewProjectService(deps Deps) *ProjectService {
	return &ProjectService{db: deps.DB}
}

// Create 创建项目.
func (s *ProjectService) Create(ctx context.Context, userID, name, aspectRatio string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.InvalidInput("Project name is required")
	}

	ratio := model.AspectRatio(aspectRatio)
	if !ratio.Valid() {
		return nil, errs.InvalidInput("Invalid aspect ratio")
	}

	project := &model.Project{UserID: userID, Name: name, AspectRatio: ratio}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, errs.Persistence(err)
	}

	return project, nil
}

// List 按创建时间倒序列出项目.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	projects := make([]model.Project, 0)

	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

// Get 获取项目，不属于调用者时视为不存在.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	return findProject(s.db.WithContext(ctx), userID, id)
}

// Delete 删除项目及其全部槽位条目.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findProject(tx, userID, id)
		if err != nil {
			return err
		}

		for _, slot := range []model.SlotKind{model.SlotBase, model.SlotClippers, model.SlotBGM} {
			if err := tx.Where("project_id = ?", project.ID).Delete(slotModel(slot)).Error; err != nil {
				return fmt.Errorf("delete %s entries: %w", slot, err)
			}
		}

		if err := tx.Delete(project).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		return nil
	})
}

func findProject(db *gorm.DB, userID, id string) (*model.Project, error) {
	var project model.Project

	err := db.Where("id = ? AND user_id = ?", id, userID).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("Project not found")
	}

	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	return &project, nil
}
