package inject

import "github.com/google/uuid"

// ── Tags ─────────────────────────────────────────────────────────────────────

// AnyTag is the type-erased view of a Tag. It is what the container keys its
// maps with, what layer manifests list, and what error chains report.
//
// Tag identity is token identity: two tags created with the same label are
// still different tags. Share the Tag value itself to share the slot.
type AnyTag interface {
	// ID returns the unique identity token of the tag.
	ID() string

	// Label returns the human-readable name used in diagnostics.
	Label() string

	// String renders the tag for error messages and logs.
	String() string
}

// Tag identifies a dependency slot. The type parameter T records, at compile
// time only, the type of value the slot holds; at runtime a tag is just a
// unique token plus a label.
//
//	var TagDB = inject.NewTag[*sql.DB]("db")
//
//	db, err := inject.Get(c, TagDB)
type Tag[T any] struct {
	id    string
	label string
}

// NewTag creates a fresh tag for values of type T. The label is used in
// diagnostics only; pass "" to have one derived from the generated token.
func NewTag[T any](label string) Tag[T] {
	id := uuid.NewString()
	if label == "" {
		label = "tag:" + id[:8]
	}
	return Tag[T]{id: id, label: label}
}

// ID returns the unique identity token of the tag.
func (t Tag[T]) ID() string { return t.id }

// Label returns the human-readable name of the tag.
func (t Tag[T]) Label() string { return t.label }

func (t Tag[T]) String() string { return t.label }
