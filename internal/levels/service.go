package levels

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Level thresholds: cumulative XP required to reach each level, then a flat
// 500 XP per level beyond the table.
var thresholds = []int{0, 100, 300, 600, 1000, 1500}

const xpPerExtraLevel = 500

// LevelForXP maps accumulated XP to a level (1-based).
func LevelForXP(xp int) int {
	if xp >= thresholds[len(thresholds)-1] {
		return len(thresholds) + (xp-thresholds[len(thresholds)-1])/xpPerExtraLevel
	}
	level := 1
	for i, t := range thresholds {
		if xp >= t {
			level = i + 1
		}
	}
	return level
}

// LevelStore is the minimal XP persistence interface.
type LevelStore interface {
	AddXP(ctx context.Context, userID uuid.UUID, amount int) (newXP int, err error)
	SetLevel(ctx context.Context, userID uuid.UUID, level int) error
}

// Service accumulates XP and recomputes the level. It is deliberately dumb:
// callers must invoke it at most once per qualifying event.
type Service struct {
	store LevelStore
	log   *slog.Logger
}

func NewService(store LevelStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// AddXP credits points and returns the new level plus whether it changed.
func (s *Service) AddXP(ctx context.Context, userID uuid.UUID, amount int, reason string) (newLevel int, leveledUp bool, err error) {
	newXP, err := s.store.AddXP(ctx, userID, amount)
	if err != nil {
		return 0, false, err
	}
	oldLevel := LevelForXP(newXP - amount)
	newLevel = LevelForXP(newXP)
	if newLevel != oldLevel {
		if err := s.store.SetLevel(ctx, userID, newLevel); err != nil {
			return 0, false, err
		}
		s.log.Info("level up", "user_id", userID, "level", newLevel, "xp", newXP, "reason", reason)
		return newLevel, true, nil
	}
	return newLevel, false, nil
}
