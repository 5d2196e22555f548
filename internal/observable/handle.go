package observable

// Handle identifies a subscription. The zero Handle is valid and releasing it is a no-op.
type Handle struct {
	id      uint64
	owner   any
	release func(id uint64)
}

// Unsubscribe releases the subscription. Calling it more than once is a no-op.
func (h Handle) Unsubscribe() {
	if h.release != nil {
		h.release(h.id)
	}
}

// Valid reports whether h was returned by Subscribe.
func (h Handle) Valid() bool {
	return h.release != nil
}
