package ptr

func String(s string) *string {
	return &s
}

// StringOrNil returns nil for the empty string so optional fields are
// omitted instead of serialized as "".
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
