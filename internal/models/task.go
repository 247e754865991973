package models

import "time"

const DefaultTaskStatus = "pending"

type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	TaskName    string     `json:"task_name" gorm:"index;not null"`
	Description string     `json:"description"`
	Status      string     `json:"status" gorm:"not null;default:'pending'"`
	OwnerID     uint       `json:"owner_id" gorm:"index;not null"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt   *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

func (Task) TableName() string {
	return "tasks"
}
