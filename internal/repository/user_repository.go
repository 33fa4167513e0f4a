package repository

import (
	"github.com/taskhive/server/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a non-deleted user by normalized email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ? AND is_deleted = ?", email, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByResetTokenHash finds a non-deleted user by reset token hash
func (r *GormUserRepository) FindByResetTokenHash(hash string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("reset_token_hash = ? AND is_deleted = ?", hash, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// SoftDelete flips the deleted flag, removes the user from all team member
// lists, and deactivates any team that empties as a result, in one
// transaction. The record itself is retained so task references stay
// resolvable.
func (r *GormUserRepository) SoftDelete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_deleted":      true,
				"current_team_id": nil,
			}).Error; err != nil {
			return err
		}

		var teamIDs []uint64
		if err := tx.Model(&models.TeamMember{}).
			Where("user_id = ?", id).
			Pluck("team_id", &teamIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}

		for _, teamID := range teamIDs {
			var remaining int64
			if err := tx.Model(&models.TeamMember{}).
				Where("team_id = ?", teamID).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Model(&models.Team{}).Where("id = ?", teamID).
					Update("is_active", false).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
