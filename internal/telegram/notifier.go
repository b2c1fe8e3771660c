package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/michikitagawa/ojohoe/internal/service"
)

// Notifier delivers subscription changes to the user's private chat.
// User ids are Telegram user ids, which double as private chat ids.
type Notifier struct {
	sender Sender
	ops    *OpsLogger
}

func NewNotifier(s Sender, ops *OpsLogger) *Notifier {
	return &Notifier{sender: s, ops: ops}
}

func (n *Notifier) SubscriptionActivated(ctx context.Context, userID string) error {
	n.ops.LogSubscription(userID, "activated")
	return n.send(ctx, userID, service.TextSubscriptionActivated)
}

func (n *Notifier) SubscriptionCancelled(ctx context.Context, userID string) error {
	n.ops.LogSubscription(userID, "cancelled")
	return n.send(ctx, userID, service.TextSubscriptionCancelled)
}

func (n *Notifier) send(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id from user %q: %w", userID, err)
	}
	return SendText(ctx, n.sender, chatID, text, nil)
}
