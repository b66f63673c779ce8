/*
Package notify routes composed alerts to a watcher's registered channel.

Delivery failures are always soft: the router logs the reason and reports it
in the DeliveryResult, so one unreachable watcher never blocks the rest of
the batch or the processed mark.
*/
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stockflow/internal/types"
)

// channelSender delivers one alert over a concrete provider.
type channelSender interface {
	SendAlert(ctx context.Context, w types.Watcher, symbol, message string) error
}

// Router dispatches alerts by watcher channel. A nil sender means the
// channel is not configured; deliveries to it are soft failures.
type Router struct {
	telegram channelSender
	whatsapp channelSender
	email    channelSender
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// RouterOpts carries the configured senders. Any of them may be nil.
type RouterOpts struct {
	Telegram channelSender
	WhatsApp channelSender
	Email    channelSender

	// SendsPerSecond paces outbound sends to avoid provider rate-limit
	// bursts. Zero disables pacing.
	SendsPerSecond float64
}

func NewRouter(opts RouterOpts, log zerolog.Logger) *Router {
	var limiter *rate.Limiter
	if opts.SendsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.SendsPerSecond), 1)
	}
	return &Router{
		telegram: opts.Telegram,
		whatsapp: opts.WhatsApp,
		email:    opts.Email,
		limiter:  limiter,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// Deliver sends the message to the watcher's channel. It never returns an
// error; failures are recorded in the result.
func (r *Router) Deliver(ctx context.Context, w types.Watcher, symbol, message string) types.DeliveryResult {
	sender, ok := r.senderFor(w)
	if !ok {
		r.log.Warn().
			Int64("user_id", w.UserID).
			Str("channel", string(w.Channel)).
			Msg("no valid contact info for watcher")
		return types.DeliveryResult{OK: false, Err: fmt.Sprintf("no valid contact info for channel %q", w.Channel)}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return types.DeliveryResult{OK: false, Err: fmt.Sprintf("delivery cancelled: %v", err)}
		}
	}

	if err := sender.SendAlert(ctx, w, symbol, message); err != nil {
		r.log.Error().Err(err).
			Int64("user_id", w.UserID).
			Str("channel", string(w.Channel)).
			Str("symbol", symbol).
			Msg("alert delivery failed")
		return types.DeliveryResult{OK: false, Err: err.Error()}
	}

	r.log.Info().
		Int64("user_id", w.UserID).
		Str("channel", string(w.Channel)).
		Str("symbol", symbol).
		Msg("alert delivered")
	return types.DeliveryResult{OK: true}
}

func (r *Router) senderFor(w types.Watcher) (channelSender, bool) {
	switch w.Channel {
	case types.ChannelTelegram:
		if r.telegram != nil && w.TelegramChatID != 0 {
			return r.telegram, true
		}
	case types.ChannelWhatsApp:
		if r.whatsapp != nil && w.PhoneNumber != "" {
			return r.whatsapp, true
		}
	case types.ChannelEmail:
		if r.email != nil && w.Email != "" {
			return r.email, true
		}
	}
	return nil, false
}
