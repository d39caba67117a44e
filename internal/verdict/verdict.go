// Package verdict defines the classification label carried through the
// engine, the journal and downstream enforcement.
package verdict

// #region kind

// Kind discriminates the three label variants.
type Kind int

const (
	KindMalicious Kind = iota
	KindBenign
	KindComputed
)

// #endregion kind

// #region label

// Label is a classification result: one of the two fixed verdicts, or a
// computed value carried verbatim from the fallback reasoner (a number or a
// symbolic expression).
type Label struct {
	kind  Kind
	value string
}

var (
	// Malicious is the fixed hostile verdict.
	Malicious = Label{kind: KindMalicious}
	// Benign is the fixed harmless verdict.
	Benign = Label{kind: KindBenign}
)

// Computed wraps a reasoner output as a label.
func Computed(value string) Label {
	return Label{kind: KindComputed, value: value}
}

// Parse maps the two fixed verdict strings to their constants and anything
// else to a computed label carrying the raw string.
func Parse(s string) Label {
	switch s {
	case "malicious":
		return Malicious
	case "benign":
		return Benign
	default:
		return Computed(s)
	}
}

// #endregion label

// #region accessors

// Kind returns the variant discriminator.
func (l Label) Kind() Kind { return l.kind }

// String renders the label for storage, journaling and downstream consumers.
func (l Label) String() string {
	switch l.kind {
	case KindMalicious:
		return "malicious"
	case KindBenign:
		return "benign"
	default:
		return l.value
	}
}

// IsMalicious reports whether enforcement (strikes, bans, abuse reports) must
// treat this label as hostile. The contract is exact string equality: only a
// label rendering "malicious" counts, never "Malicious" or a computed
// expression that merely mentions it.
func (l Label) IsMalicious() bool { return l.String() == "malicious" }

// Equal compares rendered labels, so Computed("benign") equals Benign.
func (l Label) Equal(o Label) bool { return l.String() == o.String() }

// #endregion accessors
