package domain

// StepKind names an action variant in its serialized form.
type StepKind string

// Serialized action kinds.
const (
	StepCut         StepKind = "cut"
	StepDry         StepKind = "dry"
	StepTreat       StepKind = "treat"
	StepConditional StepKind = "conditional"
)

// StepSpec is the data form of an Action. Conditional specs own their inner
// spec, mirroring the ownership tree of the built actions.
type StepSpec struct {
	Kind      StepKind      `json:"kind"`
	Length    float64       `json:"length,omitempty"`
	Predicate PredicateKind `json:"predicate,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	Inner     *StepSpec     `json:"inner,omitempty"`
}

// BuildAction constructs the action described by spec. Unknown kinds yield nil.
// A conditional spec without an inner step builds a gate with nothing behind it.
func BuildAction(spec StepSpec) Action {
	switch spec.Kind {
	case StepCut:
		return NewCutAction(spec.Length)
	case StepDry:
		return DryAction{}
	case StepTreat:
		return TreatAction{}
	case StepConditional:
		var inner Action
		if spec.Inner != nil {
			inner = BuildAction(*spec.Inner)
		}
		return NewConditionalAction(inner, spec.Predicate, spec.Threshold)
	default:
		return nil
	}
}

// BuildActions builds every spec in order, skipping unknown kinds.
func BuildActions(specs []StepSpec) []Action {
	out := make([]Action, 0, len(specs))
	for _, spec := range specs {
		if action := BuildAction(spec); action != nil {
			out = append(out, action)
		}
	}
	return out
}

// DescribeAction returns the spec for a known action. The boolean is false
// for actions outside the built-in variants.
func DescribeAction(action Action) (StepSpec, bool) {
	switch a := action.(type) {
	case CutAction:
		return StepSpec{Kind: StepCut, Length: a.Length}, true
	case *CutAction:
		return StepSpec{Kind: StepCut, Length: a.Length}, true
	case DryAction, *DryAction:
		return StepSpec{Kind: StepDry}, true
	case TreatAction, *TreatAction:
		return StepSpec{Kind: StepTreat}, true
	case ConditionalAction:
		return describeConditional(a), true
	case *ConditionalAction:
		return describeConditional(*a), true
	default:
		return StepSpec{}, false
	}
}

func describeConditional(c ConditionalAction) StepSpec {
	spec := StepSpec{Kind: StepConditional, Predicate: c.Kind, Threshold: c.Threshold}
	if c.Inner != nil {
		if inner, ok := DescribeAction(c.Inner); ok {
			spec.Inner = &inner
		}
	}
	return spec
}

// DescribeActions describes every known action in order.
func DescribeActions(actions []Action) []StepSpec {
	out := make([]StepSpec, 0, len(actions))
	for _, action := range actions {
		if spec, ok := DescribeAction(action); ok {
			out = append(out, spec)
		}
	}
	return out
}

// CloneStepSpecs deep-copies specs including nested inner steps.
func CloneStepSpecs(specs []StepSpec) []StepSpec {
	if specs == nil {
		return nil
	}
	out := make([]StepSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec.clone()
	}
	return out
}

func (s StepSpec) clone() StepSpec {
	out := s
	if s.Inner != nil {
		inner := s.Inner.clone()
		out.Inner = &inner
	}
	return out
}

// Gates reports whether the spec ends in a step of kind target behind at least one conditional gate.
func (s StepSpec) Gates(target StepKind) bool {
	if s.Kind != StepConditional || s.Inner == nil {
		return false
	}
	if s.Inner.Kind == target {
		return true
	}
	return s.Inner.Gates(target)
}
