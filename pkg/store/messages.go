package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"toneai/pkg/logger"
	"toneai/pkg/models"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// CreateMessage persists an immutable message. The store assigns id,
// createdAt and seq; createdAt never goes backwards so key order and
// createdAt order agree.
func (s *DB) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if err := ValidateID("sender_id", msg.SenderID); err != nil {
		return models.Message{}, err
	}
	if err := ValidateID("receiver_id", msg.ReceiverID); err != nil {
		return models.Message{}, err
	}
	if msg.IsStamp {
		if msg.DeliveredContent == "" {
			msg.DeliveredContent = msg.OriginalContent
		}
		if msg.DeliveredContent != msg.OriginalContent {
			return models.Message{}, fmt.Errorf("%w: stamp content must be delivered verbatim", ErrInvalidInput)
		}
	} else {
		if strings.TrimSpace(msg.OriginalContent) == "" {
			return models.Message{}, fmt.Errorf("%w: original content is required", ErrInvalidInput)
		}
		if strings.TrimSpace(msg.DeliveredContent) == "" {
			return models.Message{}, fmt.Errorf("%w: delivered content is required", ErrInvalidInput)
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	pdb, err := s.handle()
	if err != nil {
		return models.Message{}, err
	}

	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	ts := s.now().UTC().UnixNano()
	if ts < s.lastTs {
		ts = s.lastTs
	}
	seq := s.seq + 1

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Unix(0, ts).UTC()
	msg.Seq = seq

	data, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	key := messageKey(msg.SenderID, msg.ReceiverID, ts, seq)

	batch := pdb.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, data, nil); err != nil {
		return models.Message{}, err
	}
	if err := batch.Set(messageIndexKey(msg.ID), key, nil); err != nil {
		return models.Message{}, err
	}
	if err := batch.Set([]byte(messageSeqKey), encodeSeq(seq, ts), nil); err != nil {
		return models.Message{}, err
	}
	if err := batch.Commit(s.writeOpt(true)); err != nil {
		logger.Error("save_message_failed", "key", string(key), "error", err)
		return models.Message{}, err
	}
	s.seq = seq
	s.lastTs = ts
	logger.Info("message_saved", "msg_id", msg.ID, "sender", msg.SenderID, "receiver", msg.ReceiverID, "stamp", msg.IsStamp)
	return msg, nil
}

// GetMessage loads one message by id.
func (s *DB) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var m models.Message
	if id == "" {
		return m, fmt.Errorf("%w: message id is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return m, err
	}
	key, err := s.get(messageIndexKey(id))
	if err != nil {
		return m, err
	}
	if err := s.getJSON(key, &m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListConversation returns messages exchanged between a and b in either
// direction, oldest first. page.After is an exclusive cursor by message id.
func (s *DB) ListConversation(ctx context.Context, a, b string, page models.PageRequest) ([]models.Message, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	if page.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidInput)
	}
	pdb, err := s.handle()
	if err != nil {
		return nil, err
	}

	prefix := conversationPrefix(a, b)
	lower := prefix
	if page.After != "" {
		cursor, err := s.get(messageIndexKey(page.After))
		if err != nil {
			return nil, err
		}
		if !bytes.HasPrefix(cursor, prefix) {
			return nil, fmt.Errorf("%w: cursor does not belong to this conversation", ErrInvalidInput)
		}
		// keys are fixed width, so the cursor followed by 0x00 sorts right after it
		lower = append(append([]byte(nil), cursor...), 0x00)
	}

	iter, err := pdb.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Message{}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("list_messages_invalid_json", "key", string(iter.Key()), "error", err)
			return nil, fmt.Errorf("invalid message JSON: %w", err)
		}
		out = append(out, m)
		if page.Limit > 0 && len(out) >= page.Limit {
			break
		}
	}
	return out, iter.Error()
}
