// Package wizard holds the step machine of the product creation wizard.
package wizard

// Step is a position in the wizard
type Step int

const (
	StepDescription Step = iota
	StepVariants
	StepCombinations
	StepPrice
)

// LastStep is the step where the draft can be confirmed
const LastStep = StepPrice

// Routes of the navigation surface
const (
	RouteCatalog      = "/"
	RouteDescription  = "/manage"
	RouteVariants     = "/variant"
	RouteCombinations = "/combinations"
	RoutePrice        = "/price"
)

var stepNames = [...]string{"description", "variants", "combinations", "price"}

var stepRoutes = [...]string{RouteDescription, RouteVariants, RouteCombinations, RoutePrice}

// Valid reports whether s is one of the four wizard steps
func (s Step) Valid() bool {
	return s >= StepDescription && s <= LastStep
}

func (s Step) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stepNames[s]
}

// Route returns the page route for step, or the catalog route when the step
// is outside the wizard.
func Route(s Step) string {
	if !s.Valid() {
		return RouteCatalog
	}
	return stepRoutes[s]
}

// Transition is the outcome of a navigator action
type Transition struct {
	From  Step
	To    Step
	Moved bool
	// Exited is set when the user backed out of the first step; the caller
	// discards the draft.
	Exited bool
	// Confirmed is set when the draft must be assembled and the user returned
	// to the catalog.
	Confirmed bool
}

// Route returns where the user lands after the transition
func (t Transition) Route() string {
	if t.Exited || t.Confirmed {
		return RouteCatalog
	}
	return Route(t.To)
}

// Navigator moves between wizard steps one at a time
type Navigator struct {
	current Step
}

// NewNavigator starts at step, clamped into the wizard range
func NewNavigator(step Step) *Navigator {
	if step < StepDescription {
		step = StepDescription
	}
	if step > LastStep {
		step = LastStep
	}
	return &Navigator{current: step}
}

// Current returns the active step
func (n *Navigator) Current() Step {
	return n.current
}

// Advance moves forward when the current step is valid and not the last one
func (n *Navigator) Advance(valid bool) Transition {
	t := Transition{From: n.current, To: n.current}
	if !valid || n.current >= LastStep {
		return t
	}
	n.current++
	t.To = n.current
	t.Moved = true
	return t
}

// Retreat moves back one step, or exits the wizard from the first step
func (n *Navigator) Retreat() Transition {
	t := Transition{From: n.current, To: n.current}
	if n.current == StepDescription {
		t.Exited = true
		return t
	}
	n.current--
	t.To = n.current
	t.Moved = true
	return t
}

// Confirm succeeds only at the last step with a valid form
func (n *Navigator) Confirm(valid bool) Transition {
	t := Transition{From: n.current, To: n.current}
	if !valid || n.current != LastStep {
		return t
	}
	t.Confirmed = true
	return t
}
