package cart

// Event is one of the named inputs accepted by the cart state.
type Event interface {
	cartEvent()
}

// BeginAdd marks an add-to-cart request in flight.
type BeginAdd struct{}

// CompleteAdd carries the line item confirmed by the server.
type CompleteAdd struct {
	Item LineItem
}

// FailAdd reports a failed add-to-cart request.
type FailAdd struct {
	Message string
}

// Remove drops a line by id.
type Remove struct {
	ID string
}

// SetQuantity sets the quantity of a line by id.
type SetQuantity struct {
	ID       string
	Quantity int
}

// Clear empties the cart.
type Clear struct{}

// ReplaceAll replaces every line, e.g. after fetching the cart from the server.
type ReplaceAll struct {
	Items []LineItem
}

func (BeginAdd) cartEvent()    {}
func (CompleteAdd) cartEvent() {}
func (FailAdd) cartEvent()     {}
func (Remove) cartEvent()      {}
func (SetQuantity) cartEvent() {}
func (Clear) cartEvent()       {}
func (ReplaceAll) cartEvent()  {}

// Apply returns the state that follows s after e without mutating s.
func Apply(s State, e Event) State {
	switch ev := e.(type) {
	case BeginAdd:
		return s.BeginAdd()
	case CompleteAdd:
		return s.CompleteAdd(ev.Item)
	case FailAdd:
		return s.FailAdd(ev.Message)
	case Remove:
		return s.Remove(ev.ID)
	case SetQuantity:
		return s.SetQuantity(ev.ID, ev.Quantity)
	case Clear:
		return s.Clear()
	case ReplaceAll:
		return s.ReplaceAll(ev.Items)
	default:
		return s
	}
}
