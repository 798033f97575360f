package intake

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
)

type Repository interface {
	Create(ctx context.Context, in *Intake) error
	// UpsertForFile inserts in, or, when an intake already exists for its
	// source file, updates only that row's status and completion time.
	UpsertForFile(ctx context.Context, in *Intake) error
	GetByID(ctx context.Context, id string) (*Intake, error)
	FindBySourceFile(ctx context.Context, fileID string) (*Intake, error)
	UpdateStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error
	List(ctx context.Context, q ListQuery) ([]*Intake, int64, error)

	// SourceFiles loads files by id including soft-deleted ones.
	SourceFiles(ctx context.Context, ids []string) (map[string]*file.File, error)
	Analyses(ctx context.Context, fileIDs []string) (map[string]*enrichment.Analysis, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, in *Intake) error {
	return r.db.WithContext(ctx).Create(in).Error
}

func (r *repository) UpsertForFile(ctx context.Context, in *Intake) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at", "updated_at"}),
	}).Create(in).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Intake, error) {
	var in Intake
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&in).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntakeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *repository) FindBySourceFile(ctx context.Context, fileID string) (*Intake, error) {
	var in Intake
	err := r.db.WithContext(ctx).Where("source_file_id = ?", fileID).First(&in).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntakeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error {
	res := r.db.WithContext(ctx).Model(&Intake{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"completed_at": completedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIntakeNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]*Intake, int64, error) {
	query := r.db.WithContext(ctx).Model(&Intake{})
	if q.ProjectID != "" {
		query = query.Where("project_id = ?", q.ProjectID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*Intake
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) SourceFiles(ctx context.Context, ids []string) (map[string]*file.File, error) {
	out := make(map[string]*file.File, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var files []*file.File
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, err
	}
	for _, f := range files {
		out[f.ID] = f
	}
	return out, nil
}

func (r *repository) Analyses(ctx context.Context, fileIDs []string) (map[string]*enrichment.Analysis, error) {
	out := make(map[string]*enrichment.Analysis, len(fileIDs))
	if len(fileIDs) == 0 {
		return out, nil
	}
	var rows []*enrichment.Analysis
	if err := r.db.WithContext(ctx).Where("file_id IN ?", fileIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.FileID] = a
	}
	return out, nil
}
