package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table.
type UserModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name          string     `gorm:"type:varchar(50);not null"`
	Email         string     `gorm:"type:varchar(255);not null"`
	PasswordHash  *string    `gorm:"type:varchar(255)"`
	EmailVerified bool       `gorm:"not null;default:false"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
	DeletedAt     *time.Time `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
