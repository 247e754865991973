package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-weather-api/internal/models"

	"gorm.io/gorm"
)

type TaskInput struct {
	TaskName    string
	Description string
	// Status falls back to models.DefaultTaskStatus when empty.
	Status string
}

// TaskPatch is a partial update: nil fields keep their stored value.
type TaskPatch struct {
	TaskName    *string `json:"task_name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (p TaskPatch) columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if p.TaskName != nil {
		cols["task_name"] = *p.TaskName
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	return cols
}

type TaskRepository interface {
	Create(ctx context.Context, ownerID uint, input TaskInput) (*models.Task, error)
	List(ctx context.Context, ownerID uint) ([]models.Task, error)
	Get(ctx context.Context, ownerID, id uint) (*models.Task, error)
	Update(ctx context.Context, ownerID, id uint, patch TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id uint) (bool, error)
}

type GormTaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB, now func() time.Time) *GormTaskRepository {
	if now == nil {
		now = time.Now
	}
	return &GormTaskRepository{db: db, now: now}
}

func (r *GormTaskRepository) Create(ctx context.Context, ownerID uint, input TaskInput) (*models.Task, error) {
	status := input.Status
	if status == "" {
		status = models.DefaultTaskStatus
	}

	task := models.Task{
		TaskName:    input.TaskName,
		Description: input.Description,
		Status:      status,
		OwnerID:     ownerID,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

func (r *GormTaskRepository) List(ctx context.Context, ownerID uint) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *GormTaskRepository) Get(ctx context.Context, ownerID, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Take(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// Update writes the patch with a single UPDATE conditioned on id and owner,
// then reads the row back inside the same transaction.
func (r *GormTaskRepository) Update(ctx context.Context, ownerID, id uint, patch TaskPatch) (*models.Task, error) {
	cols := patch.columns()
	cols["updated_at"] = r.now().UTC()

	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Task{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(cols)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return tx.Where("id = ? AND owner_id = ?", id, ownerID).Take(&task).Error
	})
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, ownerID, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Task{})
	if result.Error != nil {
		return false, fmt.Errorf("delete task: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
