package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// eventTitles maps trade audit events to operator-facing notification titles.
// Events not listed here are persisted but never pushed to a channel.
var eventTitles = map[string]string{
	"position_opened":           "Position opened",
	"position_closed":           "Position closed",
	"buy_outcome_unknown":       "Buy outcome unknown",
	"sell_outcome_unknown":      "Sell outcome unknown",
	"reconciled_buy_confirmed":  "Reconciled: buy confirmed",
	"reconciled_sell_confirmed": "Reconciled: sell confirmed",
	"reconciled_order_failed":   "Reconciled: order failed",
	"exit_trigger_unexecuted":   "Exit trigger needs manual action",
}

// AuditFanout is a domain.AuditStore decorator that persists every entry to
// the wrapped store and mirrors trade events to the notification channels.
// Notification delivery is best effort; a sender failure never fails the
// audit write.
type AuditFanout struct {
	inner    domain.AuditStore
	notifier *Notifier
}

// NewAuditFanout wraps the given audit store so that trade events are also
// pushed through the notifier.
func NewAuditFanout(inner domain.AuditStore, notifier *Notifier) *AuditFanout {
	return &AuditFanout{inner: inner, notifier: notifier}
}

// Log persists the entry and, when the event is a recognised trade event,
// dispatches a notification for it.
func (f *AuditFanout) Log(ctx context.Context, event string, detail map[string]any) error {
	if err := f.inner.Log(ctx, event, detail); err != nil {
		return err
	}

	title, ok := eventTitles[event]
	if !ok {
		return nil
	}
	_ = f.notifier.Notify(ctx, event, title, formatDetail(detail))
	return nil
}

// List delegates to the wrapped store.
func (f *AuditFanout) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return f.inner.List(ctx, opts)
}

// ListBefore delegates to the wrapped store.
func (f *AuditFanout) ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error) {
	return f.inner.ListBefore(ctx, before)
}

// formatDetail renders an audit detail map as "key: value" lines in stable
// key order.
func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return ""
	}

	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, detail[k]))
	}
	return strings.Join(lines, "\n")
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditFanout)(nil)
