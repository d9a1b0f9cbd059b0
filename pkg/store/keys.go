package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	contactPrefix      = "c:"
	userPrefix         = "u:"
	messagePrefix      = "m:"
	messageIndexPrefix = "mi:"
	messageSeqKey      = "meta:msg_seq"
)

// letters, digits, dot, underscore, dash, at; bounded to keep key shapes sane
var idRegexp = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,128}$`)

// ValidateID checks a user or contact id is usable as a key segment.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, kind)
	}
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("%w: invalid %s %q", ErrInvalidInput, kind, id)
	}
	return nil
}

func contactKey(ownerID, contactID string) []byte {
	return []byte(contactPrefix + ownerID + ":" + contactID)
}

func contactOwnerPrefix(ownerID string) []byte {
	return []byte(contactPrefix + ownerID + ":")
}

func userKey(userID string) []byte {
	return []byte(userPrefix + userID)
}

// both directions of a conversation share one prefix: the pair is sorted
func conversationPrefix(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(messagePrefix + a + ":" + b + ":")
}

// m:{lo}:{hi}:{unix nanos, 19 digits}:{seq, 20 digits}
func messageKey(a, b string, tsNanos int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%019d:%020d", conversationPrefix(a, b), tsNanos, seq))
}

func messageIndexKey(id string) []byte {
	return []byte(messageIndexPrefix + id)
}

// parses the trailing ts and seq of a message key
func parseMessageKey(key string) (int64, uint64, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 || parts[0]+":" != messagePrefix {
		return 0, 0, fmt.Errorf("invalid message key: %q", key)
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message key ts: %w", err)
	}
	seq, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message key seq: %w", err)
	}
	return ts, seq, nil
}

// smallest key greater than every key carrying prefix
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
