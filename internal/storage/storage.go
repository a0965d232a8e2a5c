// Package storage is the durable side of the realtime layer: the Postgres
// user/conversation records and the Redis set holding the cluster-wide
// online-user view.
package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"questfeed/backend/internal/models"
)

// onlineUsersKey is the Redis set mirroring which users currently hold a
// live connection somewhere in the cluster. Best-effort: the in-process
// presence registry stays authoritative for local connections.
const onlineUsersKey = "presence:online"

var ErrUserNotFound = errors.New("user not found")

// Storage is the interface the hub and handlers depend on.
type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	TouchLastActive(userID string, ts time.Time) error

	SaveConversation(conv *models.Conversation) error
	IsParticipant(conversationID, userID string) (bool, error)

	AddOnlineUser(userID string) error
	RemoveOnlineUser(userID string) error
	GetOnlineUsers() ([]string, error)
}

// Service implements Storage over GORM and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastActive stamps the user's last-active timestamp. Called on
// disconnect, off the hub's critical path.
func (s *Service) TouchLastActive(userID string, ts time.Time) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_active_at", ts).Error
}

func (s *Service) SaveConversation(conv *models.Conversation) error {
	return s.DB.Save(conv).Error
}

// IsParticipant reports whether the user appears in the conversation's
// participant list. Backs the room-join authorization check.
func (s *Service) IsParticipant(conversationID, userID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Conversation{}).
		Where("id = ? AND ? = ANY(participants)", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) AddOnlineUser(userID string) error {
	return s.Redis.SAdd(s.Ctx, onlineUsersKey, userID).Err()
}

func (s *Service) RemoveOnlineUser(userID string) error {
	return s.Redis.SRem(s.Ctx, onlineUsersKey, userID).Err()
}

func (s *Service) GetOnlineUsers() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, onlineUsersKey).Result()
}
