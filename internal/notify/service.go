package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/models"
)

// Service stores notifications. Callers on best-effort paths ignore the
// returned error; a lost notification never blocks or rolls back anything.
type Service struct {
	repo *Repository
	log  *slog.Logger
}

func NewService(repo *Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error {
	n := &models.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		Metadata: metadata,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error("store notification", "user_id", userID, "type", notifType, "error", err)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}
