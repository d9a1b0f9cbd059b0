package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"toneai/pkg/models"
	"toneai/pkg/store"
	"toneai/pkg/tone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRewriter records every call and answers with a fixed function.
type countingRewriter struct {
	mu    sync.Mutex
	calls []string
	fn    func(text, relationship string) (string, error)
}

func (r *countingRewriter) Rewrite(_ context.Context, text, relationship string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, relationship+"|"+text)
	r.mu.Unlock()
	return r.fn(text, relationship)
}

func (r *countingRewriter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingObserver struct {
	sent      int
	transform []error
}

func (o *recordingObserver) MessageSent(models.Message) { o.sent++ }
func (o *recordingObserver) TransformDone(_ string, err error) {
	o.transform = append(o.transform, err)
}

func politely(text, relationship string) (string, error) {
	return "[" + relationship + "] " + text, nil
}

func newTestService(t *testing.T, fn func(string, string) (string, error)) (*Service, *store.DB, *countingRewriter) {
	t.Helper()
	db, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	rw := &countingRewriter{fn: fn}
	return New(db, rw, Options{Relationships: DefaultRelationships}), db, rw
}

func messageCount(t *testing.T, db *store.DB) int {
	t.Helper()
	st, err := db.Stats()
	require.NoError(t, err)
	return st.Messages
}

func TestSendWithoutRelationshipIsRejectedBeforeTransform(t *testing.T) {
	svc, db, rw := newTestService(t, politely)
	ctx := context.Background()

	ok, err := svc.CanMessage(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "Hi"})
	assert.ErrorIs(t, err, ErrNoRelationship)
	assert.Equal(t, 0, rw.count())
	assert.Equal(t, 0, messageCount(t, db))
}

func TestGateIsDirectional(t *testing.T) {
	svc, _, _ := newTestService(t, politely)
	ctx := context.Background()

	_, err := svc.AddContact(ctx, "bob", "alice", "friend")
	require.NoError(t, err)

	ok, _ := svc.CanMessage(ctx, "bob", "alice")
	assert.True(t, ok)
	ok, _ = svc.CanMessage(ctx, "alice", "bob")
	assert.False(t, ok, "receiver's entry does not authorize the reverse direction")
}

func TestSendRewritesWithSendersLabel(t *testing.T) {
	svc, db, rw := newTestService(t, politely)
	ctx := context.Background()

	_, err := svc.AddContact(ctx, "alice", "bob", "colleague")
	require.NoError(t, err)
	_, err = svc.AddContact(ctx, "bob", "alice", "family")
	require.NoError(t, err)

	msg, err := svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", msg.OriginalContent)
	assert.Equal(t, "[colleague] Hi", msg.DeliveredContent)
	assert.False(t, msg.IsStamp)
	assert.Equal(t, []string{"colleague|Hi"}, rw.calls)

	stored, err := db.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg, stored)
}

func TestStampSkipsTransform(t *testing.T) {
	svc, _, rw := newTestService(t, politely)
	ctx := context.Background()
	_, err := svc.AddContact(ctx, "alice", "bob", "colleague")
	require.NoError(t, err)

	msg, err := svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "Hi", IsStamp: true})
	require.NoError(t, err)
	assert.Equal(t, "Hi", msg.OriginalContent)
	assert.Equal(t, "Hi", msg.DeliveredContent)
	assert.True(t, msg.IsStamp)
	assert.Equal(t, 0, rw.count())
}

func TestTransformFailureStoresNothing(t *testing.T) {
	cases := map[string]func(string, string) (string, error){
		"error":      func(string, string) (string, error) { return "", errors.New("upstream 503") },
		"empty":      func(string, string) (string, error) { return "", nil },
		"whitespace": func(string, string) (string, error) { return " \n ", nil },
		"typed":      func(string, string) (string, error) { return "", tone.ErrTransformationFailed },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			svc, db, rw := newTestService(t, fn)
			obs := &recordingObserver{}
			svc.observer = obs
			ctx := context.Background()
			_, err := svc.AddContact(ctx, "alice", "bob", "friend")
			require.NoError(t, err)

			_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "Hi"})
			assert.ErrorIs(t, err, tone.ErrTransformationFailed)
			assert.Equal(t, 1, rw.count())
			assert.Equal(t, 0, messageCount(t, db))
			assert.Equal(t, 0, obs.sent)
			require.Len(t, obs.transform, 1)
			assert.Error(t, obs.transform[0])
		})
	}
}

func TestSendRequiresContent(t *testing.T) {
	svc, _, rw := newTestService(t, politely)
	ctx := context.Background()
	_, err := svc.AddContact(ctx, "alice", "bob", "friend")
	require.NoError(t, err)

	_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: ""})
	assert.ErrorIs(t, err, ErrContentRequired)
	_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "   "})
	assert.ErrorIs(t, err, ErrContentRequired)
	_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "", Content: "Hi"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Equal(t, 0, rw.count())
}

func TestConversationAfterExchange(t *testing.T) {
	svc, _, _ := newTestService(t, politely)
	ctx := context.Background()
	_, _ = svc.AddContact(ctx, "alice", "bob", "friend")
	_, _ = svc.AddContact(ctx, "bob", "alice", "colleague")

	m1, err := svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "one"})
	require.NoError(t, err)
	m2, err := svc.Send(ctx, "bob", SendInput{ReceiverID: "alice", Content: "two"})
	require.NoError(t, err)
	m3, err := svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "stamp:wave", IsStamp: true})
	require.NoError(t, err)

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		got, err := svc.Conversation(ctx, pair[0], pair[1], models.PageRequest{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	}
	assert.Equal(t, "[colleague] two", m2.DeliveredContent)
}

func TestRemovedContactCanNoLongerSend(t *testing.T) {
	svc, _, _ := newTestService(t, politely)
	ctx := context.Background()
	_, _ = svc.AddContact(ctx, "alice", "bob", "friend")
	_, err := svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "hey"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveContact(ctx, "alice", "bob"))
	require.NoError(t, svc.RemoveContact(ctx, "alice", "bob"))

	_, err = svc.Send(ctx, "alice", SendInput{ReceiverID: "bob", Content: "hey"})
	assert.ErrorIs(t, err, ErrNoRelationship)

	// past messages survive the removal
	got, err := svc.Conversation(ctx, "alice", "bob", models.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRelationshipLabels(t *testing.T) {
	svc, _, _ := newTestService(t, politely)
	ctx := context.Background()

	rel, err := svc.AddContact(ctx, "alice", "bob", " Friend ")
	require.NoError(t, err)
	assert.Equal(t, "friend", rel.Relationship)

	_, err = svc.AddContact(ctx, "alice", "carol", "nemesis")
	assert.ErrorIs(t, err, ErrInvalidRelationship)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.UpdateContact(ctx, "alice", "bob", "nemesis")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.AddContact(ctx, "alice", "dave", "")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	assert.Equal(t, DefaultRelationships, svc.Relationships())

	open := New(nil, nil, Options{})
	assert.Nil(t, open.Relationships())
	label, err := open.checkLabel("Nemesis")
	require.NoError(t, err)
	assert.Equal(t, "Nemesis", label)
}

func TestAddListExactlyOne(t *testing.T) {
	svc, _, _ := newTestService(t, politely)
	ctx := context.Background()

	_, err := svc.AddContact(ctx, "alice", "bob", "acquaintance")
	require.NoError(t, err)
	_, err = svc.AddContact(ctx, "alice", "bob", "family")
	assert.ErrorIs(t, err, store.ErrDuplicateRelationship)

	list, err := svc.Contacts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "acquaintance", list[0].Relationship)
}

func TestRewriterFuncAdapter(t *testing.T) {
	db, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, tone.RewriterFunc(func(_ context.Context, text, _ string) (string, error) {
		return text + "!", nil
	}), Options{})
	out, err := svc.Transform(context.Background(), "ok", "friend", false)
	require.NoError(t, err)
	assert.Equal(t, "ok!", out)
}
