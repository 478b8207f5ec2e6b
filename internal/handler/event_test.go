package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CheckMate/internal/classify"
	"CheckMate/internal/model"
	"CheckMate/internal/store"
)

// fakeTransport 记录外发消息，可注入发送/查询失败。
type fakeTransport struct {
	sent       []string
	channels   []string
	sendErr    error
	lookupErr  error
	displayMap map[string]string
}

func (f *fakeTransport) SendMessage(_ context.Context, channel, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.channels = append(f.channels, channel)
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) UserDisplayName(_ context.Context, userID string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	if name, ok := f.displayMap[userID]; ok {
		return name, nil
	}
	return "", errors.New("user not found")
}

func newCheckInHandler(t *testing.T) (*EventHandler, *fakeTransport, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), time.UTC, zap.NewNop())
	require.NoError(t, err)

	tr := &fakeTransport{displayMap: map[string]string{"U1": "alice", "U2": "bob"}}
	h := New(classify.VariantCheckIn(), st, tr, time.UTC, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC) }
	return h, tr, st
}

func newNotesHandler(t *testing.T) (*EventHandler, *fakeTransport, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), time.UTC, zap.NewNop())
	require.NoError(t, err)

	tr := &fakeTransport{displayMap: map[string]string{"U2": "bob"}}
	h := New(classify.VariantNotes(), st, tr, time.UTC, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC) }
	return h, tr, st
}

func TestCheckInThenDuplicate(t *testing.T) {
	h, tr, st := newCheckInHandler(t)
	ctx := context.Background()

	ev := model.InboundEvent{Text: "checkin", UserID: "U1", Channel: "C1"}
	h.HandleEvent(ctx, ev)

	day := model.DayOf(h.now(), time.UTC)
	ledger := st.LedgerFor(day)
	require.Len(t, ledger, 1)
	assert.Equal(t, "U1", ledger[0].UserID)
	assert.Equal(t, "alice", ledger[0].DisplayName)

	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], "has checked in")
	assert.Equal(t, "C1", tr.channels[0])

	// 立即重放同一事件：不产生新记录，回复重复提醒
	h.HandleEvent(ctx, ev)

	assert.Len(t, st.LedgerFor(day), 1)
	require.Len(t, tr.sent, 2)
	assert.Contains(t, tr.sent[1], "already checked in")
}

func TestCheckInRepeatedEventsKeepSingleRecord(t *testing.T) {
	h, tr, st := newCheckInHandler(t)
	ctx := context.Background()

	ev := model.InboundEvent{Text: "checkin", UserID: "U1", Channel: "C1"}
	for i := 0; i < 5; i++ {
		h.HandleEvent(ctx, ev)
	}

	day := model.DayOf(h.now(), time.UTC)
	assert.Len(t, st.LedgerFor(day), 1)

	require.Len(t, tr.sent, 5)
	for _, reply := range tr.sent[1:] {
		assert.Contains(t, reply, "already checked in")
	}
}

func TestBotMessagesAreSuppressed(t *testing.T) {
	h, tr, st := newCheckInHandler(t)

	h.HandleEvent(context.Background(), model.InboundEvent{
		Text: "checkin", UserID: "U1", Channel: "C1", BotID: "B42",
	})

	assert.Empty(t, tr.sent)
	assert.Empty(t, st.LedgerFor(model.DayOf(h.now(), time.UTC)))
}

func TestUnrecognizedGetsUsageHint(t *testing.T) {
	h, tr, st := newCheckInHandler(t)

	h.HandleEvent(context.Background(), model.InboundEvent{Text: "hello", UserID: "U1", Channel: "C1"})

	assert.Empty(t, st.LedgerFor(model.DayOf(h.now(), time.UTC)))
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], "checkin")
}

func TestUnrecognizedIgnoredInNotesVariant(t *testing.T) {
	h, tr, _ := newNotesHandler(t)

	h.HandleEvent(context.Background(), model.InboundEvent{Text: "hello", UserID: "U2", Channel: "C1"})

	assert.Empty(t, tr.sent)
}

func TestNoteThenShowNotes(t *testing.T) {
	h, tr, _ := newNotesHandler(t)
	ctx := context.Background()

	h.HandleEvent(ctx, model.InboundEvent{Text: "log this: buy milk", UserID: "U2", Channel: "C1"})

	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], "Got it, <@U2>!")
	assert.Contains(t, tr.sent[0], "buy milk")

	h.HandleEvent(ctx, model.InboundEvent{Text: "<@BOT> show notes", UserID: "U9", Channel: "C1", Mention: true})

	require.Len(t, tr.sent, 2)
	assert.Contains(t, tr.sent[1], "1. <@U2>")
	assert.Contains(t, tr.sent[1], "buy milk")
}

func TestShowNotesNumbersFollowInsertionOrder(t *testing.T) {
	h, tr, _ := newNotesHandler(t)
	ctx := context.Background()

	h.HandleEvent(ctx, model.InboundEvent{Text: "log this: first", UserID: "U2", Channel: "C1"})
	h.HandleEvent(ctx, model.InboundEvent{Text: "note this: second", UserID: "U2", Channel: "C1"})
	h.HandleEvent(ctx, model.InboundEvent{Text: "show notes", UserID: "U2", Channel: "C1", Mention: true})

	require.Len(t, tr.sent, 3)
	list := tr.sent[2]
	assert.Contains(t, list, "1. <@U2>: \"log this: first\"")
	assert.Contains(t, list, "2. <@U2>: \"note this: second\"")
	assert.Less(t, strings.Index(list, "first"), strings.Index(list, "second"))
}

func TestShowNotesEmpty(t *testing.T) {
	h, tr, _ := newNotesHandler(t)

	h.HandleEvent(context.Background(), model.InboundEvent{Text: "show notes", UserID: "U2", Channel: "C1", Mention: true})

	require.Len(t, tr.sent, 1)
	assert.Equal(t, "No notes recorded yet.", tr.sent[0])
}

func TestLookupFailureFallsBackToUserID(t *testing.T) {
	h, tr, st := newCheckInHandler(t)
	tr.lookupErr = errors.New("slack api down")

	h.HandleEvent(context.Background(), model.InboundEvent{Text: "checkin", UserID: "U7", Channel: "C1"})

	ledger := st.LedgerFor(model.DayOf(h.now(), time.UTC))
	require.Len(t, ledger, 1)
	assert.Equal(t, "U7", ledger[0].DisplayName)
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], "has checked in")
}

func TestSendFailureDoesNotUndoMutation(t *testing.T) {
	h, tr, st := newCheckInHandler(t)
	tr.sendErr = errors.New("transport down")

	h.HandleEvent(context.Background(), model.InboundEvent{Text: "checkin", UserID: "U1", Channel: "C1"})

	// 回复失败被吞掉，打卡记录仍然落账
	assert.Len(t, st.LedgerFor(model.DayOf(h.now(), time.UTC)), 1)
	assert.Empty(t, tr.sent)
}
