// Package notify describes best-effort delivery of messages to club members.
// A failed send is reported back to the caller and never undoes the state
// change that triggered it.
package notify

import "context"

// Result is the outcome of one delivery.
type Result struct {
	TgID int64
	Sent bool
	Err  error
}

type Notifier interface {
	Notify(ctx context.Context, tgID int64, text string) Result
	NotifyMany(ctx context.Context, tgIDs []int64, text string) []Result
	NotifyAdmins(ctx context.Context, text string) []Result
}

// Failed returns the unsuccessful deliveries.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Sent {
			failed = append(failed, r)
		}
	}
	return failed
}

// Unique drops zero and repeated ids while keeping the order.
func Unique(tgIDs []int64) []int64 {
	seen := make(map[int64]struct{}, len(tgIDs))
	out := make([]int64, 0, len(tgIDs))
	for _, id := range tgIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
