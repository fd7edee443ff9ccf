package service

import (
	"context"
	"strings"

	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/internal/transport"
	"github.com/denportal/wagate/pkg/logger"
)

// RuleContext is what a handler gets to work with for one inbound message.
type RuleContext struct {
	TenantID    string
	Message     *models.InboundMessage
	SenderPhone string
}

// RuleHandler executes one named action against a matched message. params
// is the action's configuration after placeholder resolution.
type RuleHandler func(ctx context.Context, rc *RuleContext, params map[string]any) error

// RuleEngine matches inbound texts against the configured rule set and
// dispatches the matched rule's actions to registered handlers.
type RuleEngine struct {
	rules    []models.Rule
	handlers map[string]RuleHandler
	l        logger.Logger
}

func NewRuleEngine(rules []models.Rule, l logger.Logger) *RuleEngine {
	return &RuleEngine{
		rules:    rules,
		handlers: make(map[string]RuleHandler),
		l:        l,
	}
}

// Register binds a handler name used in rule actions to its implementation.
// Later registrations replace earlier ones.
func (e *RuleEngine) Register(name string, h RuleHandler) {
	e.handlers[name] = h
}

// Match returns the first enabled rule whose value equals the lower-cased
// text. Comparison is case-insensitive and exact; no trimming beyond what
// the transport already did.
func (e *RuleEngine) Match(text string) *models.Rule {
	lowered := strings.ToLower(text)
	for i := range e.rules {
		r := &e.rules[i]
		if !r.Enabled || r.Operand != models.RuleOperandEquals {
			continue
		}
		if strings.ToLower(r.Value) == lowered {
			return r
		}
	}
	return nil
}

// HandleInbound is the InboundHandler wired into the session layer. A
// non-matching message is dropped untouched; only matched messages get a
// read receipt.
func (e *RuleEngine) HandleInbound(ctx context.Context, tenantID string, msg *models.InboundMessage, conn transport.Conn) {
	rule := e.Match(msg.Text)
	if rule == nil {
		return
	}

	if err := conn.MarkRead(ctx, msg.ID, msg.ChatJID); err != nil {
		e.l.Debugf(ctx, "[%s] mark read failed for %s: %v", tenantID, msg.ID, err)
	}

	rc := &RuleContext{
		TenantID:    tenantID,
		Message:     msg,
		SenderPhone: transport.StripJIDSuffix(msg.ChatJID),
	}

	e.runActions(ctx, rule, rc)
}

// runActions executes the rule's actions in order. A failing or unknown
// action is logged and the rest still run.
func (e *RuleEngine) runActions(ctx context.Context, rule *models.Rule, rc *RuleContext) {
	for _, action := range rule.Actions {
		if action.Type != models.ActionTypeHandler {
			e.l.Warnf(ctx, "[%s] unsupported action type %q for rule %q", rc.TenantID, action.Type, rule.Value)
			continue
		}

		handler, ok := e.handlers[action.Name]
		if !ok {
			e.l.Warnf(ctx, "[%s] no handler registered for action %q", rc.TenantID, action.Name)
			continue
		}

		params := e.resolveParams(ctx, action.Params, rc)
		if err := handler(ctx, rc, params); err != nil {
			e.l.Errorf(ctx, "[%s] action %q failed for rule %q: %v", rc.TenantID, action.Name, rule.Value, err)
		}
	}
}

func (e *RuleEngine) resolveParams(ctx context.Context, params map[string]any, rc *RuleContext) map[string]any {
	resolved := ResolveParams(params, rc)
	for k := range params {
		if k != "text" && k != "sender" {
			if _, nested := params[k].(map[string]any); !nested {
				e.l.Debugf(ctx, "[%s] unrecognized rule param key %q resolved to empty", rc.TenantID, k)
			}
		}
	}
	return resolved
}

// ResolveParams materializes an action's params for the given context.
// Resolution is by key: "text" keeps the configured literal, "sender"
// substitutes the sender's phone number, any other key resolves to empty.
// Nested maps resolve recursively.
func ResolveParams(params map[string]any, rc *RuleContext) map[string]any {
	resolved := make(map[string]any, len(params))
	for k, v := range params {
		if nested, ok := v.(map[string]any); ok {
			resolved[k] = ResolveParams(nested, rc)
			continue
		}
		switch k {
		case "text":
			resolved[k] = v
		case "sender":
			resolved[k] = rc.SenderPhone
		default:
			resolved[k] = ""
		}
	}
	return resolved
}
