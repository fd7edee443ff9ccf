package service

import (
	"context"
	"fmt"

	"github.com/denportal/wagate/pkg/logger"
)

// SubscriptionUpdater flips a guardian's notification opt-in on the portal.
type SubscriptionUpdater interface {
	UpdateSubscription(ctx context.Context, sender, action string) error
}

const (
	subscribeText   = "1"
	unsubscribeText = "0"

	subscribedReply   = "You are now subscribed ✅"
	unsubscribedReply = "You are unsubscribed ✅"
)

// NewSubscriptionHandler builds the handler behind the subscribe/unsubscribe
// rule: forwards the choice to the portal and confirms back to the sender.
// The choice comes from the resolved "text" param (the rule's configured
// literal) and the recipient from the resolved "sender" param; both fall
// back to the message context when the rule omits them.
func NewSubscriptionHandler(portal SubscriptionUpdater, sender TextSender, l logger.Logger) RuleHandler {
	return func(ctx context.Context, rc *RuleContext, params map[string]any) error {
		phone, _ := params["sender"].(string)
		if phone == "" {
			phone = rc.SenderPhone
		}
		if phone == "" {
			return fmt.Errorf("subscription update without sender")
		}

		text, _ := params["text"].(string)
		if text == "" {
			text = rc.Message.Text
		}
		if text != subscribeText && text != unsubscribeText {
			return fmt.Errorf("unexpected subscription text %q", text)
		}

		if err := portal.UpdateSubscription(ctx, phone, text); err != nil {
			return fmt.Errorf("portal subscription update: %w", err)
		}

		reply := unsubscribedReply
		if text == subscribeText {
			reply = subscribedReply
		}

		if err := sender.SendText(ctx, rc.TenantID, phone, reply); err != nil {
			l.Errorf(ctx, "[%s] failed to confirm subscription to %s: %v", rc.TenantID, phone, err)
		}
		return nil
	}
}
