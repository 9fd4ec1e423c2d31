package domain

// ItemView is the read-only surface of a wood item handed out by Inventory.
type ItemView interface {
	Species() string
	Thickness() float64
	Moisture() float64
	IsTreated() bool
	Steps() []Action
}

// WoodItem is a unit of lumber together with the ordered steps it owns.
type WoodItem struct {
	species   string
	thickness float64
	moisture  float64
	treated   bool
	steps     []Action
}

// NewWoodItem builds a fully formed item. The item takes ownership of the
// steps; the caller's slice is copied so later appends do not alias.
func NewWoodItem(species string, thickness, moisture float64, treated bool, steps []Action) *WoodItem {
	owned := make([]Action, len(steps))
	copy(owned, steps)
	return &WoodItem{
		species:   species,
		thickness: thickness,
		moisture:  moisture,
		treated:   treated,
		steps:     owned,
	}
}

// Species returns the wood species.
func (w *WoodItem) Species() string { return w.species }

// Thickness returns the thickness in millimetres.
func (w *WoodItem) Thickness() float64 { return w.thickness }

// Moisture returns the moisture content percentage.
func (w *WoodItem) Moisture() float64 { return w.moisture }

// IsTreated reports whether the item has been treated.
func (w *WoodItem) IsTreated() bool { return w.treated }

// SetMoisture is the mutation point used by actions.
func (w *WoodItem) SetMoisture(m float64) { w.moisture = m }

// SetTreated is the mutation point used by actions.
func (w *WoodItem) SetTreated(t bool) { w.treated = t }

// Steps returns a copy of the owned step sequence.
func (w *WoodItem) Steps() []Action {
	out := make([]Action, len(w.steps))
	copy(out, w.steps)
	return out
}

// Process applies every owned step to the item in insertion order.
func (w *WoodItem) Process() {
	for _, step := range w.steps {
		if step == nil {
			continue
		}
		step.Apply(w)
	}
}

// Inventory owns an ordered collection of wood items.
type Inventory struct {
	items []*WoodItem
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// AddItem appends item; nil items are ignored.
func (inv *Inventory) AddItem(item *WoodItem) {
	if item == nil {
		return
	}
	inv.items = append(inv.items, item)
}

// Items returns read handles for every item in insertion order.
func (inv *Inventory) Items() []ItemView {
	out := make([]ItemView, len(inv.items))
	for i, item := range inv.items {
		out[i] = itemView{w: item}
	}
	return out
}

// itemView forwards the accessors of an owned item so a handle cannot be
// turned back into a *WoodItem.
type itemView struct {
	w *WoodItem
}

func (v itemView) Species() string    { return v.w.Species() }
func (v itemView) Thickness() float64 { return v.w.Thickness() }
func (v itemView) Moisture() float64  { return v.w.Moisture() }
func (v itemView) IsTreated() bool    { return v.w.IsTreated() }
func (v itemView) Steps() []Action    { return v.w.Steps() }

// Len returns the number of owned items.
func (inv *Inventory) Len() int { return len(inv.items) }

// ProcessAll processes each item in insertion order.
func (inv *Inventory) ProcessAll() {
	for _, item := range inv.items {
		item.Process()
	}
}
