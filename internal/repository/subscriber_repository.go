package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-dashboard/internal/model"
)

// SubscriberRepository stores Telegram chats that receive digests.
type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Subscribe finds or creates a subscriber by TelegramID, refreshes profile
// info and marks it active.
func (r *SubscriberRepository) Subscribe(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Subscriber, error) {
	var sub model.Subscriber
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&sub).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
			"active":     true,
		}
		if err := db.Model(&sub).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update subscriber: %w", err)
		}
		return &sub, nil
	case err == gorm.ErrRecordNotFound:
		sub = model.Subscriber{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
			Active:     true,
		}
		if err := db.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		return &sub, nil
	default:
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
}

// Unsubscribe deactivates the subscriber. Unknown ids are ignored.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, telegramID int64) error {
	if err := r.db.WithContext(ctx).Model(&model.Subscriber{}).
		Where("telegram_id = ?", telegramID).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (r *SubscriberRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Subscriber, error) {
	var sub model.Subscriber
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriberRepository) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	var subs []model.Subscriber
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
