package target

// Slot is a location inside a container or record. Ref implementations return
// a *Slot for values that cannot share storage on their own, such as a slice
// held in a map entry or an interface: an introspector binding to the slot
// reads the current value through Load and writes resized values back through
// Store.
type Slot struct {
	load  func() any
	store func(any) error
}

// NewSlot binds load and store to a location.
func NewSlot(load func() any, store func(any) error) *Slot {
	return &Slot{load: load, store: store}
}

// Load returns the value currently held by the location.
func (s *Slot) Load() any {
	return s.load()
}

// Store replaces the value held by the location.
func (s *Slot) Store(value any) error {
	return s.store(value)
}

// Unslot returns the value held by v when v is a *Slot and v otherwise.
func Unslot(v any) any {
	if s, ok := v.(*Slot); ok {
		return s.Load()
	}
	return v
}
