// Package telegram adapts the delivery channel to the Telegram Bot API
// via telebot. The bot only sends: inbound commands are handled by a
// separate surface and are not part of this process.
package telegram

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

type Config struct {
	Token string
	// RatePerSec bounds outbound sends; Telegram throttles bots hard
	// past ~30 msg/s globally and 1 msg/s per chat.
	RatePerSec int
}

type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// The limiter honors cancellation; telebot's own HTTP client
	// bounds the API call itself.
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}

	msg, err := a.bot.Send(
		&tele.Chat{ID: to.ChatID},
		text,
		&tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		},
	)
	if err != nil {
		return transport.MessageRef{}, err
	}
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}
