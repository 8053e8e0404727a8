package repository

import (
	"time"

	"voicecmd-backend/internal/device/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository defines the interface for reply device token operations
type DeviceRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]domain.DeviceToken, error)
	DeleteToken(userID, token string) error
	DeleteTokens(tokens []string) error
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new instance of deviceRepository
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// SaveToken saves or moves a token to userID (atomic upsert on the token)
func (r *deviceRepository) SaveToken(userID, token, deviceInfo string) error {
	now := time.Now()
	device := &domain.DeviceToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(device).Error
}

func (r *deviceRepository) GetTokensByUserID(userID string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := r.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteToken removes a token owned by userID
func (r *deviceRepository) DeleteToken(userID, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&domain.DeviceToken{}).Error
}

// DeleteTokens removes tokens FCM reported as invalid
func (r *deviceRepository) DeleteTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.Where("token IN ?", tokens).Delete(&domain.DeviceToken{}).Error
}
