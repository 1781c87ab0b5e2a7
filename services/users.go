package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"chorus/groupware/models"
)

// UserDirectory answers whether an ID belongs to a registered account.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", id, err)
	}
	return count > 0, nil
}
