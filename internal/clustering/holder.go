package clustering

import "sync/atomic"

// Holder keeps the most recently published model. Readers see either the
// previous or the new model, never a partially built one.
type Holder struct {
	current atomic.Pointer[Model]
}

// Publish replaces the held model. A nil model is ignored so that a skipped
// or failed fit never clears a good one.
func (h *Holder) Publish(m *Model) {
	if m == nil {
		return
	}
	h.current.Store(m)
}

// Current returns the held model and whether one has been published.
func (h *Holder) Current() (*Model, bool) {
	m := h.current.Load()
	return m, m != nil
}
