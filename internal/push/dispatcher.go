package push

import (
	"context"
	"fmt"
	"log"

	"github.com/sportbuddy/chat-server/internal/stats"
)

// Result reports what the dispatcher did with a notification.
type Result int

const (
	// ResultFailed means a transient provider or store error; the caller
	// decides whether the failure matters.
	ResultFailed Result = iota
	// ResultDelivered means the provider accepted the message.
	ResultDelivered
	// ResultSkipped means no delivery was attempted: the recipient has no
	// stored token, or push is disabled.
	ResultSkipped
	// ResultInvalidated means the provider reported the token as permanently
	// dead; the stored token was deleted and the call counts as completed.
	ResultInvalidated
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultSkipped:
		return "skipped"
	case ResultInvalidated:
		return "invalidated"
	default:
		return "failed"
	}
}

// Notification is a single push to one recipient. Data is always attached;
// Title/Body/Image are only rendered when the recipient is offline and the
// OS has to display the notification itself.
type Notification struct {
	Type  string
	Title string
	Body  string
	Image string
	Data  map[string]string
}

// Provider abstracts the push service so tests can fake delivery and token
// invalidation.
type Provider interface {
	SendData(ctx context.Context, token string, data map[string]string) error
	SendDisplay(ctx context.Context, token string, n Notification) error
	IsTokenNotRegistered(err error) bool
}

// TokenStore is the slice of the repository the dispatcher needs.
type TokenStore interface {
	GetPushToken(ctx context.Context, userId string) (string, error)
	ClearPushToken(ctx context.Context, userId string) error
}

// Presence answers whether a recipient currently has a live connection.
type Presence interface {
	IsOnline(userId string) bool
}

const (
	StatPushesSent            = "PushesSent"
	StatPushesSkipped         = "PushesSkipped"
	StatPushTokensInvalidated = "PushTokensInvalidated"
)

type Dispatcher struct {
	log      *log.Logger
	tokens   TokenStore
	presence Presence
	provider Provider
	stats    stats.StatsProvider
}

func NewDispatcher(logger *log.Logger, tokens TokenStore, presence Presence, provider Provider, sp stats.StatsProvider) *Dispatcher {
	sp.RegisterMetric(StatPushesSent)
	sp.RegisterMetric(StatPushesSkipped)
	sp.RegisterMetric(StatPushTokensInvalidated)

	return &Dispatcher{
		log:      logger,
		tokens:   tokens,
		presence: presence,
		provider: provider,
		stats:    sp,
	}
}

// Notify sends a push to the recipient. When the recipient is online the
// message is data-only and the app renders it; when offline the message
// carries a display notification so the OS shows it with the app closed.
// A token the provider reports as dead is deleted and the call still
// completes successfully.
func (d *Dispatcher) Notify(ctx context.Context, recipientId string, n Notification) (Result, error) {
	if d.provider == nil {
		return ResultSkipped, nil
	}

	token, err := d.tokens.GetPushToken(ctx, recipientId)
	if err != nil {
		return ResultFailed, fmt.Errorf("get push token: %w", err)
	}
	if token == "" {
		d.stats.Incr(StatPushesSkipped)
		return ResultSkipped, nil
	}

	if d.presence.IsOnline(recipientId) {
		err = d.provider.SendData(ctx, token, d.dataPayload(n))
	} else {
		err = d.provider.SendDisplay(ctx, token, n)
	}

	if err != nil {
		if d.provider.IsTokenNotRegistered(err) {
			d.log.Printf("push token for %q no longer registered, deleting", recipientId)
			if clearErr := d.tokens.ClearPushToken(ctx, recipientId); clearErr != nil {
				d.log.Printf("clear push token for %q: %v", recipientId, clearErr)
			}
			d.stats.Incr(StatPushTokensInvalidated)
			return ResultInvalidated, nil
		}
		return ResultFailed, fmt.Errorf("send push: %w", err)
	}

	d.stats.Incr(StatPushesSent)
	return ResultDelivered, nil
}

func (d *Dispatcher) dataPayload(n Notification) map[string]string {
	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data["type"] = n.Type
	return data
}
