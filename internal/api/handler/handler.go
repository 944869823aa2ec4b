package handler

import (
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler holds everything the HTTP and websocket endpoints need.
type Handler struct {
	Hub      *chathub.Hub
	Gateway  *chathub.Gateway
	Accounts *auth.Service
	Verifier auth.Verifier
	Storage  storage.Storage
	Config   *config.Config
}

func NewHandler(hub *chathub.Hub, gateway *chathub.Gateway, accounts *auth.Service, verifier auth.Verifier, s storage.Storage, cfg *config.Config) *Handler {
	return &Handler{
		Hub:      hub,
		Gateway:  gateway,
		Accounts: accounts,
		Verifier: verifier,
		Storage:  s,
		Config:   cfg,
	}
}

// RegisterRoutes mounts the API, the upload directory and the websocket
// endpoint on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", h.RequireAuth(), h.Me)

		api.GET("/rooms", h.ListRooms)
		api.POST("/rooms", h.RequireAuth(), h.CreateRoom)
		api.POST("/rooms/:name/participants", h.RequireAuth(), h.AddParticipant)
		api.GET("/rooms/:name/members", h.RequireAuth(), h.RoomMembers)

		api.POST("/upload", h.RequireAuth(), h.Upload)
	}

	router.Static("/uploads", h.Config.UploadDir)
	router.GET("/ws", h.ServeWebSocket)
}
