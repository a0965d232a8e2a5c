package handler

import (
	"go.uber.org/zap"

	"questfeed/backend/internal/auth"
	"questfeed/backend/internal/realtime"
	"questfeed/backend/internal/storage"
)

// Handler holds the realtime hub and its collaborators for the HTTP surface.
type Handler struct {
	Hub      *realtime.Hub
	Verifier *auth.Verifier
	Storage  storage.Storage
	Log      *zap.Logger
}

func NewHandler(hub *realtime.Hub, verifier *auth.Verifier, s storage.Storage, log *zap.Logger) *Handler {
	return &Handler{Hub: hub, Verifier: verifier, Storage: s, Log: log}
}
