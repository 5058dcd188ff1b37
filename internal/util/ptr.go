package util

// Ptr returns a pointer to the given value.
// This is a generic helper for creating pointers to literals.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or def when p is nil.
// Used for optional config values where nil means "use the default".
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
