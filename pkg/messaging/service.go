// Package messaging runs the relationship-gated send pipeline: the sender's
// own label for the receiver authorizes the send and selects the tone the
// message is rewritten into before it is stored.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"toneai/pkg/logger"
	"toneai/pkg/models"
	"toneai/pkg/store"
	"toneai/pkg/tone"
)

var (
	ErrNoRelationship      = errors.New("contact relationship not found")
	ErrContentRequired     = errors.New("content is required")
	ErrInvalidRelationship = errors.New("relationship label not allowed")
)

// DefaultRelationships are the labels offered to users.
var DefaultRelationships = []string{"family", "friend", "colleague", "acquaintance"}

// Store is the persistence the service needs.
type Store interface {
	AddContact(ctx context.Context, ownerID, contactID, label string) (models.ContactRelationship, error)
	UpdateContact(ctx context.Context, ownerID, contactID, label string) (models.ContactRelationship, error)
	RemoveContact(ctx context.Context, ownerID, contactID string) error
	GetContact(ctx context.Context, ownerID, contactID string) (models.ContactRelationship, error)
	ListContacts(ctx context.Context, ownerID string) ([]models.ContactView, error)
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListConversation(ctx context.Context, a, b string, page models.PageRequest) ([]models.Message, error)
}

// Observer receives pipeline outcomes; metrics plug in here.
type Observer interface {
	MessageSent(m models.Message)
	TransformDone(relationship string, err error)
}

type Options struct {
	// Relationships limits the accepted labels; empty accepts any label.
	Relationships []string
	Observer      Observer
}

type Service struct {
	store    Store
	rewriter tone.Rewriter
	allowed  map[string]struct{}
	labels   []string
	observer Observer
}

func New(st Store, rw tone.Rewriter, opts Options) *Service {
	s := &Service{store: st, rewriter: rw, observer: opts.Observer}
	if len(opts.Relationships) > 0 {
		s.allowed = make(map[string]struct{}, len(opts.Relationships))
		for _, r := range opts.Relationships {
			r = strings.ToLower(strings.TrimSpace(r))
			if _, dup := s.allowed[r]; r == "" || dup {
				continue
			}
			s.allowed[r] = struct{}{}
			s.labels = append(s.labels, r)
		}
	}
	return s
}

// SendInput is a compose request from the caller.
type SendInput struct {
	ReceiverID string
	Content    string
	IsStamp    bool
}

// Send authorizes, transforms and stores one message. Nothing is stored
// when any step fails, and the rewriter is never called for a send that
// the gate rejects.
func (s *Service) Send(ctx context.Context, callerID string, in SendInput) (models.Message, error) {
	if in.Content == "" || (!in.IsStamp && strings.TrimSpace(in.Content) == "") {
		return models.Message{}, ErrContentRequired
	}
	if err := store.ValidateID("receiver_id", in.ReceiverID); err != nil {
		return models.Message{}, err
	}

	rel, err := s.relationship(ctx, callerID, in.ReceiverID)
	if err != nil {
		return models.Message{}, err
	}

	delivered, err := s.Transform(ctx, in.Content, rel.Relationship, in.IsStamp)
	if err != nil {
		logger.Warn("transform_failed", "sender", callerID, "receiver", in.ReceiverID, "relationship", rel.Relationship, "error", err)
		return models.Message{}, err
	}

	msg, err := s.store.CreateMessage(ctx, models.Message{
		SenderID:         callerID,
		ReceiverID:       in.ReceiverID,
		OriginalContent:  in.Content,
		DeliveredContent: delivered,
		IsStamp:          in.IsStamp,
	})
	if err != nil {
		return models.Message{}, err
	}
	if s.observer != nil {
		s.observer.MessageSent(msg)
	}
	logger.Info("message_sent", "msg_id", msg.ID, "sender", callerID, "receiver", in.ReceiverID, "stamp", msg.IsStamp)
	return msg, nil
}

// Conversation lists both directions between the caller and partner.
func (s *Service) Conversation(ctx context.Context, callerID, partnerID string, page models.PageRequest) ([]models.Message, error) {
	return s.store.ListConversation(ctx, callerID, partnerID, page)
}

// CanMessage reports whether sender has labeled receiver as a contact.
func (s *Service) CanMessage(ctx context.Context, senderID, receiverID string) (bool, error) {
	_, err := s.relationship(ctx, senderID, receiverID)
	if errors.Is(err, ErrNoRelationship) {
		return false, nil
	}
	return err == nil, err
}

// Transform returns the delivered content for content. Stamps pass through
// without calling the rewriter.
func (s *Service) Transform(ctx context.Context, content, relationship string, isStamp bool) (string, error) {
	if isStamp {
		return content, nil
	}
	out, err := s.rewriter.Rewrite(ctx, content, relationship)
	if err == nil {
		out = strings.TrimSpace(out)
		if out == "" {
			err = errors.New("empty rewrite")
		}
	}
	if err != nil && !errors.Is(err, tone.ErrTransformationFailed) {
		err = fmt.Errorf("%w: %v", tone.ErrTransformationFailed, err)
	}
	if s.observer != nil {
		s.observer.TransformDone(relationship, err)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *Service) relationship(ctx context.Context, senderID, receiverID string) (models.ContactRelationship, error) {
	rel, err := s.store.GetContact(ctx, senderID, receiverID)
	if errors.Is(err, store.ErrNotFound) {
		return rel, ErrNoRelationship
	}
	return rel, err
}
