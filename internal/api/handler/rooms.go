package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

type addParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// ListRooms returns the public room catalog.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Storage.ListPublicRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// CreateRoom adds a room to the catalog with the caller as creator.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = config.RoomKindPublic
	}
	if !config.RoomKinds[req.Type] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be public or private"})
		return
	}

	room, err := h.Storage.CreateRoom(c.Request.Context(), req.Name, req.Type, currentIdentity(c).ID)
	switch {
	case errors.Is(err, storage.ErrDuplicateRoomName):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, storage.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("ERROR: Failed to create room %s: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// AddParticipant lets a room's creator add a user to its participant list.
func (h *Handler) AddParticipant(c *gin.Context) {
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := c.Param("name")
	room, err := h.Storage.GetRoomByName(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": storage.ErrRoomNotFound.Error()})
		return
	}
	if room.CreatorID != currentIdentity(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can add participants"})
		return
	}

	if err := h.Storage.AddParticipant(c.Request.Context(), name, req.UserID); err != nil {
		log.Printf("ERROR: Failed to add %s to %s: %v", req.UserID, name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add participant"})
		return
	}
	c.Status(http.StatusNoContent)
}

// RoomMembers lists the display names currently connected to a room.
// Members of a private room are visible to its participants only.
func (h *Handler) RoomMembers(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))

	room, err := h.Storage.GetRoomByName(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}
	if room != nil && room.Kind == config.RoomKindPrivate && !room.HasParticipant(currentIdentity(c).ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Room is private"})
		return
	}

	members := h.Hub.Members(name)
	c.JSON(http.StatusOK, gin.H{
		"room":    name,
		"members": lo.Map(members, func(m models.Identity, _ int) string { return m.DisplayName }),
	})
}
