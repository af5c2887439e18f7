package hans

// OverrideOnce holds a persistent value and an optional replacement that is used by the next
// Get only.
type OverrideOnce[T any] struct {
	value T
	once  *T
}

// NewOverrideOnce returns an OverrideOnce holding value.
func NewOverrideOnce[T any](value T) OverrideOnce[T] {
	return OverrideOnce[T]{value: value}
}

// Set replaces the persistent value. A pending one-shot value is kept.
func (o *OverrideOnce[T]) Set(value T) {
	o.value = value
}

// Once stores value for the next Get.
func (o *OverrideOnce[T]) Once(value T) {
	o.once = &value
}

// Get returns and clears the one-shot value if there is one, otherwise the persistent value.
func (o *OverrideOnce[T]) Get() T {
	if o.once == nil {
		return o.value
	}
	v := *o.once
	o.once = nil
	return v
}
