package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// CompositionService 管理项目的 base、clippers、bgm 三个槽位.
// base 与 clippers 的 position 在项目内保持从 0 开始的连续序列.
type CompositionService struct {
	db  *gorm.DB
	cfg configs.CompositionConfig
}

// NewCompositionService 创建槽位服务.
func NewCompositionService(deps Deps) *CompositionService {
	return &CompositionService{db: deps.DB, cfg: deps.config().Composition}
}

func slotModel(slot model.SlotKind) any {
	switch slot {
	case model.SlotBase:
		return &model.BaseClip{}
	case model.SlotClippers:
		return &model.ClipperClip{}
	default:
		return &model.BGMTrack{}
	}
}

func slotTable(slot model.SlotKind) string {
	switch slot {
	case model.SlotBase:
		return model.BaseClip{}.TableName()
	case model.SlotClippers:
		return model.ClipperClip{}.TableName()
	default:
		return model.BGMTrack{}.TableName()
	}
}

func (s *CompositionService) capacity(slot model.SlotKind) int64 {
	switch slot {
	case model.SlotBase:
		return int64(s.cfg.MaxBaseClips)
	case model.SlotClippers:
		return int64(s.cfg.MaxClipperClips)
	default:
		return 1
	}
}

// slotRow 槽位条目与所引用素材的联合查询结果.
type slotRow struct {
	ID              string
	AssetID         string
	Position        int
	Filename        string
	AssetType       model.AssetType
	FileURL         string
	DurationSeconds *float64
}

func (r slotRow) entry(slot model.SlotKind) types.SlotEntry {
	return types.SlotEntry{
		ID:       r.ID,
		Slot:     slot,
		Position: r.Position,
		AssetID:  r.AssetID,
		Asset: &types.AssetSummary{
			ID:              r.AssetID,
			Filename:        r.Filename,
			AssetType:       r.AssetType,
			FileURL:         r.FileURL,
			DurationSeconds: r.DurationSeconds,
		},
	}
}

func (s *CompositionService) readSlot(ctx context.Context, slot model.SlotKind, projectID string) ([]types.SlotEntry, error) {
	position := "s.position"
	if slot == model.SlotBGM {
		position = "0"
	}

	var rows []slotRow

	err := s.db.WithContext(ctx).
		Table(slotTable(slot)+" AS s").
		Select("s.id, s.asset_id, "+position+" AS position, a.filename, a.asset_type, a.file_url, a.duration_seconds").
		Joins("JOIN user_assets a ON a.id = s.asset_id").
		Where("s.project_id = ?", projectID).
		Order("position ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read %s slot: %w", slot, err)
	}

	entries := make([]types.SlotEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry(slot))
	}

	return entries, nil
}

// Slots 并发读取三个槽位.
func (s *CompositionService) Slots(ctx context.Context, userID, projectID string) (*types.Composition, error) {
	if _, err := findProject(s.db.WithContext(ctx), userID, projectID); err != nil {
		return nil, err
	}

	var base, clippers, bgm []types.SlotEntry

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		base, err = s.readSlot(gctx, model.SlotBase, projectID)
		return err
	})
	g.Go(func() (err error) {
		clippers, err = s.readSlot(gctx, model.SlotClippers, projectID)
		return err
	})
	g.Go(func() (err error) {
		bgm, err = s.readSlot(gctx, model.SlotBGM, projectID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	comp := &types.Composition{Base: base, Clippers: clippers}
	if len(bgm) > 0 {
		comp.BGM = &bgm[0]
	}

	return comp, nil
}

// Add 把素材追加到槽位末尾，新条目的 position 等于当前条目数.
func (s *CompositionService) Add(ctx context.Context, userID, projectID, slotName, assetID string) (*types.SlotEntry, error) {
	slot := model.SlotKind(slotName)
	if !slot.Valid() {
		return nil, errs.InvalidInput("Invalid slot")
	}

	var entry types.SlotEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProject(tx, userID, projectID); err != nil {
			return err
		}

		var asset model.Asset

		err := tx.Where("id = ? AND user_id = ?", assetID, userID).Take(&asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("Asset not found")
		}

		if err != nil {
			return fmt.Errorf("load asset: %w", err)
		}

		if !slot.Accepts(asset.AssetType) {
			return errs.InvalidInput(fmt.Sprintf("%s assets cannot be added to the %s slot", asset.AssetType, slot))
		}

		var count int64
		if err := tx.Model(slotModel(slot)).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return fmt.Errorf("count %s entries: %w", slot, err)
		}

		if count >= s.capacity(slot) {
			return errs.SlotFull(fmt.Sprintf("The %s slot is full", slot))
		}

		id, err := insertEntry(tx, slot, projectID, asset.ID, int(count))
		if err != nil {
			return err
		}

		entry = slotRow{
			ID:              id,
			AssetID:         asset.ID,
			Position:        int(count),
			Filename:        asset.Filename,
			AssetType:       asset.AssetType,
			FileURL:         asset.FileURL,
			DurationSeconds: asset.DurationSeconds,
		}.entry(slot)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func insertEntry(tx *gorm.DB, slot model.SlotKind, projectID, assetID string, position int) (string, error) {
	var (
		row any
		id  func() string
	)

	switch slot {
	case model.SlotBase:
		r := &model.BaseClip{ProjectID: projectID, AssetID: assetID, Position: position}
		row, id = r, func() string { return r.ID }
	case model.SlotClippers:
		r := &model.ClipperClip{ProjectID: projectID, AssetID: assetID, Position: position}
		row, id = r, func() string { return r.ID }
	default:
		r := &model.BGMTrack{ProjectID: projectID, AssetID: assetID}
		row, id = r, func() string { return r.ID }
	}

	if err := tx.Create(row).Error; err != nil {
		return "", fmt.Errorf("insert %s entry: %w", slot, err)
	}

	return id(), nil
}

// Remove 删除槽位条目并把其后的条目前移一位.bgm 槽位忽略 position.
func (s *CompositionService) Remove(ctx context.Context, userID, projectID, slotName string, position int) error {
	slot := model.SlotKind(slotName)
	if !slot.Valid() {
		return errs.InvalidInput("Invalid slot")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProject(tx, userID, projectID); err != nil {
			return err
		}

		return removeAt(tx, slot, projectID, position)
	})
}

// removeAt 在事务内删除条目并重新编号.
// 逐行按 position 升序前移，避免与 (project_id, position) 唯一约束冲突.
func removeAt(tx *gorm.DB, slot model.SlotKind, projectID string, position int) error {
	if slot == model.SlotBGM {
		res := tx.Where("project_id = ?", projectID).Delete(&model.BGMTrack{})
		if res.Error != nil {
			return fmt.Errorf("delete bgm entry: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return errs.NotFound("Entry not found")
		}

		return nil
	}

	res := tx.Where("project_id = ? AND position = ?", projectID, position).Delete(slotModel(slot))
	if res.Error != nil {
		return fmt.Errorf("delete %s entry: %w", slot, res.Error)
	}

	if res.RowsAffected == 0 {
		return errs.NotFound("Entry not found")
	}

	var later []slotRow

	err := tx.Model(slotModel(slot)).Select("id", "position").
		Where("project_id = ? AND position > ?", projectID, position).
		Order("position ASC").Find(&later).Error
	if err != nil {
		return fmt.Errorf("load %s entries: %w", slot, err)
	}

	for _, r := range later {
		err := tx.Model(slotModel(slot)).Where("id = ?", r.ID).Update("position", r.Position-1).Error
		if err != nil {
			return fmt.Errorf("renumber %s entry: %w", slot, err)
		}
	}

	return nil
}

// detachAsset 从所有项目的槽位中移除素材，保持编号连续.
func detachAsset(tx *gorm.DB, assetID string) error {
	for _, slot := range []model.SlotKind{model.SlotBase, model.SlotClippers} {
		var refs []struct {
			ProjectID string
			Position  int
		}

		// 同一项目内从后往前删，前面条目的 position 不受影响
		err := tx.Model(slotModel(slot)).Select("project_id", "position").
			Where("asset_id = ?", assetID).
			Order("project_id ASC, position DESC").Find(&refs).Error
		if err != nil {
			return fmt.Errorf("find %s references: %w", slot, err)
		}

		for _, ref := range refs {
			if err := removeAt(tx, slot, ref.ProjectID, ref.Position); err != nil {
				return err
			}
		}
	}

	if err := tx.Where("asset_id = ?", assetID).Delete(&model.BGMTrack{}).Error; err != nil {
		return fmt.Errorf("detach bgm: %w", err)
	}

	return nil
}
