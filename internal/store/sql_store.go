package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/metrics"
	"gorm.io/gorm"
)

// GormMessageStore writes messages through GORM.
type GormMessageStore struct {
	db *gorm.DB
}

func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

func (s *GormMessageStore) InsertMessage(ctx context.Context, draft domain.MessageDraft) (*domain.StoredMessage, error) {
	defer metrics.RecordStore("insert_message", time.Now())

	now := time.Now().UTC()
	id, err := newMessageID(now)
	if err != nil {
		return nil, err
	}
	model := DraftToModel(id, draft, now)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return model.ToDomain(), nil
}

// GetMessage loads a stored message by id.
func (s *GormMessageStore) GetMessage(ctx context.Context, id string) (*domain.StoredMessage, error) {
	var model MessageModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormUserDirectory reads display attributes from the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) LookupUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	defer metrics.RecordStore("lookup_users", time.Now())

	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []UserModel
	if err := d.db.WithContext(ctx).
		Select("id", "name", "profile_picture").
		Where("id IN ?", ids).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to look up users: %w", err)
	}
	for i := range models {
		out[models[i].ID] = models[i].ToDomain()
	}
	return out, nil
}

// GetUser returns one user's display attributes.
func (d *GormUserDirectory) GetUser(ctx context.Context, id string) (domain.UserSummary, error) {
	users, err := d.LookupUsers(ctx, []string{id})
	if err != nil {
		return domain.UserSummary{}, err
	}
	u, ok := users[id]
	if !ok {
		return domain.UserSummary{}, ErrUserNotFound
	}
	return u, nil
}
