// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import "github.com/pdiddy/pubmed-contacts/pkg/types"

// Observer receives progress notifications from a Pipeline. It is a side
// channel only; nothing an observer does affects the result.
type Observer interface {
	// BatchStarted is called before batch n of total is fetched (1-based).
	BatchStarted(n, total int)
	// BatchFailed is called when batch n could not be fetched or parsed.
	BatchFailed(n int, err error)
	// RecordSkipped is called for each malformed record in a batch.
	RecordSkipped(rec types.MalformedRecord)
	// RecordProcessed is called after a record has been folded into the
	// result; rows is the number of rows it contributed.
	RecordProcessed(pmid string, rows int)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) BatchStarted(int, int) {}
func (NopObserver) BatchFailed(int, error) {}
func (NopObserver) RecordSkipped(types.MalformedRecord) {}
func (NopObserver) RecordProcessed(string, int) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) BatchStarted(n, total int) {
	for _, o := range m {
		o.BatchStarted(n, total)
	}
}

func (m MultiObserver) BatchFailed(n int, err error) {
	for _, o := range m {
		o.BatchFailed(n, err)
	}
}

func (m MultiObserver) RecordSkipped(rec types.MalformedRecord) {
	for _, o := range m {
		o.RecordSkipped(rec)
	}
}

func (m MultiObserver) RecordProcessed(pmid string, rows int) {
	for _, o := range m {
		o.RecordProcessed(pmid, rows)
	}
}
