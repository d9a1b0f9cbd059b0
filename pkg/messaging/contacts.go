package messaging

import (
	"context"
	"fmt"
	"strings"

	"toneai/pkg/models"
	"toneai/pkg/store"
)

func (s *Service) Contacts(ctx context.Context, callerID string) ([]models.ContactView, error) {
	return s.store.ListContacts(ctx, callerID)
}

func (s *Service) AddContact(ctx context.Context, callerID, contactID, label string) (models.ContactRelationship, error) {
	label, err := s.checkLabel(label)
	if err != nil {
		return models.ContactRelationship{}, err
	}
	return s.store.AddContact(ctx, callerID, contactID, label)
}

func (s *Service) UpdateContact(ctx context.Context, callerID, contactID, label string) (models.ContactRelationship, error) {
	label, err := s.checkLabel(label)
	if err != nil {
		return models.ContactRelationship{}, err
	}
	return s.store.UpdateContact(ctx, callerID, contactID, label)
}

func (s *Service) RemoveContact(ctx context.Context, callerID, contactID string) error {
	return s.store.RemoveContact(ctx, callerID, contactID)
}

// Relationships returns the accepted labels, nil when any label is accepted.
func (s *Service) Relationships() []string {
	if len(s.labels) == 0 {
		return nil
	}
	return append([]string(nil), s.labels...)
}

// empty labels fall through to the store, which rejects them as invalid input
func (s *Service) checkLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" || s.allowed == nil {
		return label, nil
	}
	norm := strings.ToLower(label)
	if _, ok := s.allowed[norm]; !ok {
		return "", fmt.Errorf("%w: %w %q", store.ErrInvalidInput, ErrInvalidRelationship, label)
	}
	return norm, nil
}
