package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"CheckMate/internal/classify"
	"CheckMate/internal/model"
	"CheckMate/internal/store"
	pkgerrors "CheckMate/pkg/errors"
)

// Transport 消息通道能力，处理流程只依赖这两项。
type Transport interface {
	SendMessage(ctx context.Context, channel, text string) error
	UserDisplayName(ctx context.Context, userID string) (string, error)
}

// EventHandler 单事件处理管线：过滤机器人消息、识别意图、变更台账、组装回复。
// 事件按投递顺序逐个处理，先落账后回复。
type EventHandler struct {
	classifier *classify.Classifier
	store      *store.Store
	transport  Transport
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	classifier *classify.Classifier,
	st *store.Store,
	transport Transport,
	loc *time.Location,
	logger *zap.Logger,
) *EventHandler {
	return &EventHandler{
		classifier: classifier,
		store:      st,
		transport:  transport,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleEvent 处理一条入站事件，单趟终态，无重试无多轮会话。
func (h *EventHandler) HandleEvent(ctx context.Context, ev model.InboundEvent) {
	if ev.FromBot() {
		return
	}

	intent := h.classifier.Classify(ev.Text, ev.Mention)

	var reply string
	switch intent {
	case classify.IntentCheckIn:
		reply = h.handleCheckIn(ctx, ev)
	case classify.IntentNote:
		reply = h.handleNote(ctx, ev)
	case classify.IntentShowNotes:
		reply = h.composeNotesList()
	case classify.IntentUnrecognized:
		if h.classifier.Fallback() == classify.FallbackIgnore {
			return
		}
		reply = fmt.Sprintf("Sorry <@%s>, I didn't catch that. Send `checkin` to check in for today.", ev.UserID)
	}

	if reply == "" {
		return
	}

	// 回复失败只记日志，已落账的记录不受影响
	if err := h.transport.SendMessage(ctx, ev.Channel, reply); err != nil {
		h.logger.Warn("Failed to send reply",
			zap.String("channel", ev.Channel),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
	}
}

func (h *EventHandler) handleCheckIn(ctx context.Context, ev model.InboundEvent) string {
	now := h.now()
	day := model.DayOf(now, h.loc)

	rec := model.CheckInRecord{
		UserID:      ev.UserID,
		DisplayName: h.resolveDisplayName(ctx, ev.UserID),
		Timestamp:   now,
	}

	err := h.store.RecordCheckIn(day, rec)
	switch {
	case errors.Is(err, pkgerrors.CheckInAlreadyDone):
		// 预期的业务状态，不算错误
		return fmt.Sprintf("<@%s>, you have already checked in today.", ev.UserID)
	case err != nil:
		h.logger.Error("Failed to record check-in",
			zap.String("day", day.String()),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
		return fmt.Sprintf("Sorry <@%s>, something went wrong saving your check-in. Please try again.", ev.UserID)
	}

	h.logger.Info("Check-in recorded",
		zap.String("day", day.String()),
		zap.String("user_id", ev.UserID),
	)
	return fmt.Sprintf("<@%s> has checked in for today (%s).", ev.UserID, now.In(h.loc).Format("15:04"))
}

func (h *EventHandler) handleNote(ctx context.Context, ev model.InboundEvent) string {
	rec := model.NoteRecord{
		UserID:      ev.UserID,
		DisplayName: h.resolveDisplayName(ctx, ev.UserID),
		Text:        ev.Text,
		Timestamp:   h.now(),
	}

	if _, err := h.store.AppendNote(rec); err != nil {
		h.logger.Error("Failed to append note",
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
		return fmt.Sprintf("Sorry <@%s>, something went wrong saving your note. Please try again.", ev.UserID)
	}

	h.logger.Info("Note recorded", zap.String("user_id", ev.UserID))
	return fmt.Sprintf("Got it, <@%s>! I've noted your message: %q.", ev.UserID, ev.Text)
}

func (h *EventHandler) composeNotesList() string {
	notes := h.store.AllNotes()
	if len(notes) == 0 {
		return "No notes recorded yet."
	}

	var b strings.Builder
	b.WriteString("Here are the recorded notes:")
	for i, note := range notes {
		b.WriteString(fmt.Sprintf("\n%d. <@%s>: %q", i+1, note.UserID, note.Text))
	}
	return b.String()
}

// resolveDisplayName 查询展示名，失败降级为用户 ID，不阻断事件处理。
func (h *EventHandler) resolveDisplayName(ctx context.Context, userID string) string {
	name, err := h.transport.UserDisplayName(ctx, userID)
	if err != nil || name == "" {
		h.logger.Warn("User lookup failed, falling back to user ID",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return userID
	}
	return name
}
