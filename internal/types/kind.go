package types

import "fmt"

// Kind discriminates the three kinds of log entry.
//
// The numeric values match the codes the mobile app persisted, so
// legacy structured exports that carry an integer "type" still decode.
type Kind int

const (
	// KindTask is a to-do item with an optional due date and a completion flag.
	KindTask Kind = iota
	// KindNote is free text logged against a date.
	KindNote
	// KindPayment records money received, carrying an Amount.
	KindPayment
)

// kindLabels is the wire label for each kind. ParseKind is its exact inverse.
var kindLabels = map[Kind]string{
	KindTask:    "Task",
	KindNote:    "Note",
	KindPayment: "Payment",
}

var labelKinds = map[string]Kind{
	"Task":    KindTask,
	"Note":    KindNote,
	"Payment": KindPayment,
}

// String returns the wire label ("Task", "Note", "Payment").
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// ParseKind maps a wire label back to its Kind. Matching is exact and
// case-sensitive; anything else reports ok=false.
func ParseKind(label string) (Kind, bool) {
	k, ok := labelKinds[label]
	return k, ok
}

// KindFromCode maps a legacy integer code to its Kind.
func KindFromCode(code int) (Kind, bool) {
	k := Kind(code)
	return k, k.Valid()
}

// Kinds returns all kinds in code order.
func Kinds() []Kind {
	return []Kind{KindTask, KindNote, KindPayment}
}
