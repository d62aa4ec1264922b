package target

// Visibility of a record member.
type Visibility uint8

const (
	// Public members are addressable through a proxy.
	Public Visibility = iota + 1
	// NonPublic members exist but are hidden from a proxy.
	NonPublic
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case NonPublic:
		return "non-public"
	default:
		return "unknown"
	}
}

// Member names a declared field or callable.
type Member struct {
	Name       string
	Visibility Visibility
}

// Public reports whether the member is visible.
func (m Member) Public() bool {
	return m.Visibility == Public
}

// Shape is the immutable, type-level description of a record.
type Shape struct {
	// Name identifies the record type for diagnostics.
	Name string
	// Fields and Callables list declared members in declaration order.
	Fields    []Member
	Callables []Member

	// AnyType marks the canonical untyped record type.
	AnyType bool
	// DynamicMarked marks types explicitly opted into ad hoc fields.
	DynamicMarked bool
	// ReadHook and WriteHook report public catch-all read/write hooks.
	ReadHook  bool
	WriteHook bool
}

// Field looks up a declared field.
func (s *Shape) Field(name string) (Member, bool) {
	return findMember(s.Fields, name)
}

// Callable looks up a declared callable by bare name.
func (s *Shape) Callable(name string) (Member, bool) {
	return findMember(s.Callables, name)
}

// PublicFields lists visible field names in declaration order.
func (s *Shape) PublicFields() []string {
	return publicNames(s.Fields)
}

// PublicCallables lists visible callable names in declaration order.
func (s *Shape) PublicCallables() []string {
	return publicNames(s.Callables)
}

func findMember(members []Member, name string) (Member, bool) {
	for _, m := range members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

func publicNames(members []Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.Public() {
			out = append(out, m.Name)
		}
	}
	return out
}
