package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrValidation is returned when a message or room fails schema validation.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateRoomName is returned by CreateRoom when the name is taken.
	ErrDuplicateRoomName = errors.New("room name already exists")
	// ErrRoomNotFound is returned when a catalog room is required but missing.
	ErrRoomNotFound = errors.New("chat room not found")
	// ErrUserExists is returned by CreateUser when the username is taken.
	ErrUserExists = errors.New("username already taken")
)

var validate = validator.New()

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	AppendMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	RecentByRoom(ctx context.Context, room string, limit int) ([]models.Message, error)

	CreateRoom(ctx context.Context, name, kind, creatorID string) (*models.Room, error)
	ListPublicRooms(ctx context.Context) ([]models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	AddParticipant(ctx context.Context, roomName, userID string) error

	IsUserBanned(ctx context.Context, userID string) (bool, error)
	BanUser(ctx context.Context, userID string, duration time.Duration) error
	UnbanUser(ctx context.Context, userID string) error
	CacheIdentity(ctx context.Context, identity models.Identity, ttl time.Duration) error
	GetCachedIdentity(ctx context.Context, userID string) (*models.Identity, error)

	Ping(ctx context.Context) error
}

// Service is the gorm + Redis implementation of Storage.
// Redis may be nil; the cache and ban methods then degrade to no-ops.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// OpenDatabase connects gorm to PostgreSQL or SQLite depending on driver.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates the tables of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Message{},
	)
}

// Ping checks the database and, when configured, Redis.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}

// CreateUser inserts a new user. ErrUserExists is returned on conflicts.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUserExists
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

// GetUserByID returns nil without error when the user does not exist.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to get user %s: %v", id, err)
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername returns nil without error when the user does not exist.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AppendMessage validates and persists a message, then resolves its sender.
// A message needs at least one of Content or FileURL.
func (s *Service) AppendMessage(ctx context.Context, in models.NewMessage) (*models.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.FileURL = strings.TrimSpace(in.FileURL)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msg := models.Message{
		Room:     in.Room,
		SenderID: in.SenderID,
		Content:  in.Content,
		FileURL:  in.FileURL,
		FileType: normalizeFileType(in.FileURL, in.FileType),
		// PostgreSQL keeps microseconds; truncate so the broadcast copy equals the stored one.
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(&msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", in.Room, err)
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Where("id = ?", msg.SenderID).First(&msg.Sender).Error; err != nil {
		// The message is already durable, so a missing profile only degrades the view.
		log.Printf("WARNING: Message %d saved but sender %s could not be resolved: %v", msg.ID, msg.SenderID, err)
	}
	return &msg, nil
}

func normalizeFileType(fileURL, fileType string) string {
	if fileURL == "" {
		return config.FileTypeNone
	}
	if fileType == "" || fileType == config.FileTypeNone {
		return config.FileTypeFile
	}
	return fileType
}

// RecentByRoom returns up to limit of the newest messages in room, oldest first,
// with senders preloaded.
func (s *Service) RecentByRoom(ctx context.Context, room string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}

	var history []models.Message
	err := s.DB.WithContext(ctx).
		Preload("Sender").
		Where("room = ?", room).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		log.Printf("ERROR: Failed to get chat history for room %s: %v", room, err)
		return nil, err
	}
	return lo.Reverse(history), nil
}
