package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"CheckMate/internal/handler"
	"CheckMate/internal/model"
	pkgerrors "CheckMate/pkg/errors"
)

// Bot 持有 Socket Mode 长连接，串行消费入站事件并转交处理器。
// 同时作为 handler.Transport 提供发消息与查用户能力。
type Bot struct {
	api    *slack.Client
	sock   *socketmode.Client
	logger *zap.Logger
}

func New(botToken, appToken string, logger *zap.Logger) *Bot {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	return &Bot{
		api:    api,
		sock:   socketmode.New(api),
		logger: logger,
	}
}

// SendMessage 向来源频道发送回复。
func (b *Bot) SendMessage(ctx context.Context, channel, text string) error {
	if _, _, err := b.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.TransportSendFailed, err)
	}
	return nil
}

// UserDisplayName 通过 Web API 解析展示名。
func (b *Bot) UserDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := b.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgerrors.TransportLookupFailed, err)
	}

	if name := user.Profile.DisplayName; name != "" {
		return name, nil
	}
	if user.RealName != "" {
		return user.RealName, nil
	}
	return user.Name, nil
}

// Run 驱动事件循环直到 ctx 取消；正在处理的事件会处理完再退出。
// 事件在同一 goroutine 里顺序处理，同一用户的两次打卡天然有先后。
func (b *Bot) Run(ctx context.Context, h *handler.EventHandler) error {
	go func() {
		if err := b.sock.RunContext(ctx); err != nil && ctx.Err() == nil {
			b.logger.Error("Socket mode connection terminated", zap.Error(err))
		}
	}()

	b.logger.Info("Slack bot is running, waiting for events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-b.sock.Events:
			if !ok {
				return nil
			}
			b.consume(ctx, evt, h)
		}
	}
}

func (b *Bot) consume(ctx context.Context, evt socketmode.Event, h *handler.EventHandler) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("Connecting to Slack with Socket Mode...")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("Socket mode connection failed, retrying")
	case socketmode.EventTypeConnected:
		b.logger.Info("Connected to Slack with Socket Mode")
	case socketmode.EventTypeEventsAPI:
		// 不论载荷是否识别都先确认信封，避免 Slack 重投
		if evt.Request != nil {
			b.sock.Ack(*evt.Request)
		}

		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}

		b.dispatch(ctx, apiEvent, h)
	}
}

func (b *Bot) dispatch(ctx context.Context, apiEvent slackevents.EventsAPIEvent, h *handler.EventHandler) {
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		h.HandleEvent(ctx, model.InboundEvent{
			Text:    ev.Text,
			UserID:  ev.User,
			Channel: ev.Channel,
			BotID:   ev.BotID,
		})
	case *slackevents.AppMentionEvent:
		h.HandleEvent(ctx, model.InboundEvent{
			Text:    ev.Text,
			UserID:  ev.User,
			Channel: ev.Channel,
			BotID:   ev.BotID,
			Mention: true,
		})
	default:
		b.logger.Debug("Ignoring unsupported event type",
			zap.String("type", apiEvent.InnerEvent.Type),
		)
	}
}
