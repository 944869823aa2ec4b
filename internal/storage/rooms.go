package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRoom adds a room to the catalog. The creator becomes its first participant.
func (s *Service) CreateRoom(ctx context.Context, name, kind, creatorID string) (*models.Room, error) {
	in := models.NewRoom{
		Name:      strings.TrimSpace(name),
		Kind:      kind,
		CreatorID: creatorID,
	}
	if in.Kind == "" {
		in.Kind = config.RoomKindPublic
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	room := models.Room{
		Name:      in.Name,
		Kind:      in.Kind,
		CreatorID: in.CreatorID,
	}
	if in.CreatorID != "" {
		room.Participants = models.UserIDs{in.CreatorID}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Room{}).Where("name = ?", room.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateRoomName
		}
		return tx.Create(&room).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateRoomName
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListPublicRooms returns every public room ordered by name.
func (s *Service) ListPublicRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).
		Where("kind = ?", config.RoomKindPublic).
		Order("name asc").
		Find(&rooms).Error; err != nil {
		log.Printf("ERROR: Failed to list public rooms: %v", err)
		return nil, err
	}
	return rooms, nil
}

// ListRooms returns the whole catalog, oldest first.
func (s *Service) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetRoomByName returns nil without error when the room is not in the catalog.
func (s *Service) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", name, err)
		return nil, err
	}
	return &room, nil
}

// AddParticipant records userID in the room's durable participant list.
// Adding an existing participant is a no-op.
func (s *Service) AddParticipant(ctx context.Context, roomName, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		query := tx.Where("name = ?", roomName)
		if tx.Dialector.Name() == "postgres" {
			// Row lock so concurrent adds do not overwrite each other's array.
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := query.First(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if room.HasParticipant(userID) {
			return nil
		}
		room.Participants = append(room.Participants, userID)
		return tx.Model(&room).Update("participants", room.Participants).Error
	})
}
