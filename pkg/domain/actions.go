package domain

// Action is a processing step applied to a single wood item. Implementations
// mutate only the item they receive and never fail.
type Action interface {
	Apply(item *WoodItem)
}

// DryRetention is the share of moisture kept by one drying pass.
const DryRetention = 0.8

// CutAction records a cut length. Applying it leaves the item untouched.
type CutAction struct {
	Length float64
}

// NewCutAction stores length as given; any value is accepted.
func NewCutAction(length float64) CutAction {
	return CutAction{Length: length}
}

// Apply is a no-op; the length is stored for reporting only.
func (CutAction) Apply(*WoodItem) {}

// DryAction reduces moisture content to DryRetention of its current value.
type DryAction struct{}

// Apply dries the item by one pass.
func (DryAction) Apply(item *WoodItem) {
	item.SetMoisture(item.Moisture() * DryRetention)
}

// TreatAction marks the item as treated.
type TreatAction struct{}

// Apply sets the treated flag.
func (TreatAction) Apply(item *WoodItem) {
	item.SetTreated(true)
}

// PredicateKind selects the test a ConditionalAction runs before delegating.
type PredicateKind string

const (
	// PredicateMoistureAbove passes when moisture is strictly greater than the threshold.
	PredicateMoistureAbove PredicateKind = "MoistureAbove"
)

// Holds reports whether the predicate passes for item. Unrecognised kinds never pass.
func (k PredicateKind) Holds(item ItemView, threshold float64) bool {
	switch k {
	case PredicateMoistureAbove:
		return item.Moisture() > threshold
	default:
		return false
	}
}

// ConditionalAction wraps an inner action and applies it only when the
// predicate holds. The inner action may itself be conditional.
type ConditionalAction struct {
	Inner     Action
	Kind      PredicateKind
	Threshold float64
}

// NewConditionalAction takes ownership of inner.
func NewConditionalAction(inner Action, kind PredicateKind, threshold float64) ConditionalAction {
	return ConditionalAction{Inner: inner, Kind: kind, Threshold: threshold}
}

// Apply evaluates the predicate and delegates when it passes.
func (c ConditionalAction) Apply(item *WoodItem) {
	if !c.Kind.Holds(item, c.Threshold) {
		return
	}
	if c.Inner == nil {
		return
	}
	c.Inner.Apply(item)
}
