package store

import (
	"context"
	"strings"

	"toneai/pkg/logger"
	"toneai/pkg/models"
)

// PutUser upserts a profile in the user directory.
func (s *DB) PutUser(ctx context.Context, u models.User) (models.User, error) {
	if err := ValidateID("user id", u.ID); err != nil {
		return models.User{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	u.Image = strings.TrimSpace(u.Image)
	u.UpdatedAt = s.now().UTC()
	if err := s.putJSON(userKey(u.ID), u); err != nil {
		logger.Error("user_put_failed", "user", u.ID, "error", err)
		return models.User{}, err
	}
	logger.Debug("user_put", "user", u.ID)
	return u, nil
}

// GetUser returns the stored profile or ErrNotFound.
func (s *DB) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	if err := ValidateID("user id", userID); err != nil {
		return u, err
	}
	if err := ctx.Err(); err != nil {
		return u, err
	}
	if err := s.getJSON(userKey(userID), &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}
