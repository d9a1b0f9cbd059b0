package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"toneai/pkg/logger"
	"toneai/pkg/models"
)

// AddContact creates the owner -> contact relationship. The check and the
// write happen under the owner's lock so concurrent adds of the same pair
// yield exactly one success.
func (s *DB) AddContact(ctx context.Context, ownerID, contactID, label string) (models.ContactRelationship, error) {
	var rel models.ContactRelationship
	if err := validatePair(ownerID, contactID); err != nil {
		return rel, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return rel, fmt.Errorf("%w: relationship is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return rel, err
	}

	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	key := contactKey(ownerID, contactID)
	if _, err := s.get(key); err == nil {
		return rel, ErrDuplicateRelationship
	} else if !errors.Is(err, ErrNotFound) {
		return rel, err
	}

	now := s.now().UTC()
	rel = models.ContactRelationship{
		OwnerID:      ownerID,
		ContactID:    contactID,
		Relationship: label,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.putJSON(key, rel); err != nil {
		logger.Error("contact_add_failed", "owner", ownerID, "contact", contactID, "error", err)
		return models.ContactRelationship{}, err
	}
	logger.Info("contact_added", "owner", ownerID, "contact", contactID, "relationship", label)
	return rel, nil
}

// UpdateContact replaces the label on an existing relationship.
func (s *DB) UpdateContact(ctx context.Context, ownerID, contactID, label string) (models.ContactRelationship, error) {
	var rel models.ContactRelationship
	if err := validatePair(ownerID, contactID); err != nil {
		return rel, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return rel, fmt.Errorf("%w: relationship is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return rel, err
	}

	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	key := contactKey(ownerID, contactID)
	if err := s.getJSON(key, &rel); err != nil {
		return models.ContactRelationship{}, err
	}
	rel.Relationship = label
	rel.UpdatedAt = s.now().UTC()
	if err := s.putJSON(key, rel); err != nil {
		logger.Error("contact_update_failed", "owner", ownerID, "contact", contactID, "error", err)
		return models.ContactRelationship{}, err
	}
	logger.Info("contact_updated", "owner", ownerID, "contact", contactID, "relationship", label)
	return rel, nil
}

// RemoveContact deletes the relationship; removing a missing one succeeds.
func (s *DB) RemoveContact(ctx context.Context, ownerID, contactID string) error {
	if err := validatePair(ownerID, contactID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	pdb, err := s.handle()
	if err != nil {
		return err
	}
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()
	if err := pdb.Delete(contactKey(ownerID, contactID), s.writeOpt(true)); err != nil {
		logger.Error("contact_remove_failed", "owner", ownerID, "contact", contactID, "error", err)
		return err
	}
	logger.Info("contact_removed", "owner", ownerID, "contact", contactID)
	return nil
}

// GetContact returns the owner -> contact relationship or ErrNotFound.
func (s *DB) GetContact(ctx context.Context, ownerID, contactID string) (models.ContactRelationship, error) {
	var rel models.ContactRelationship
	if err := validatePair(ownerID, contactID); err != nil {
		return rel, err
	}
	if err := ctx.Err(); err != nil {
		return rel, err
	}
	if err := s.getJSON(contactKey(ownerID, contactID), &rel); err != nil {
		return models.ContactRelationship{}, err
	}
	return rel, nil
}

// ListContacts returns the owner's relationships newest first, joined with
// whatever profile data exists for each contact.
func (s *DB) ListContacts(ctx context.Context, ownerID string) ([]models.ContactView, error) {
	if err := ValidateID("user id", ownerID); err != nil {
		return nil, err
	}
	var rels []models.ContactRelationship
	err := s.scan(contactOwnerPrefix(ownerID), func(_, v []byte) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		var rel models.ContactRelationship
		if err := json.Unmarshal(v, &rel); err != nil {
			return false, fmt.Errorf("decode contact: %w", err)
		}
		rels = append(rels, rel)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rels, func(i, j int) bool {
		return rels[i].CreatedAt.After(rels[j].CreatedAt)
	})

	out := make([]models.ContactView, 0, len(rels))
	for _, rel := range rels {
		u, err := s.GetUser(ctx, rel.ContactID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		out = append(out, models.NewContactView(rel, u))
	}
	return out, nil
}

func validatePair(ownerID, contactID string) error {
	if err := ValidateID("user id", ownerID); err != nil {
		return err
	}
	return ValidateID("contact_id", contactID)
}

func (s *DB) putJSON(key []byte, v any) error {
	pdb, err := s.handle()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return pdb.Set(key, b, s.writeOpt(true))
}

func (s *DB) getJSON(key []byte, v any) error {
	b, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
