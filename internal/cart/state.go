// Package cart holds the client-side shopping cart state.
//
// Line items are kept in insertion order. Two additions of the same
// product in the same size never produce two lines: the second addition
// is merged into the first line's quantity.
package cart

// LineItem is one row in the cart.
type LineItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"image_url"`
}

// Key is the merge key of a line item.
type Key struct {
	ProductID string
	Size      string
}

// Key returns the (product, size) pair the item merges on.
func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, Size: i.Size}
}

// State is the cart state. The zero value is an empty cart.
type State struct {
	items   []LineItem
	index   map[Key]int // position in items
	loading bool
	err     string
}

// New returns an empty cart.
func New() State {
	return State{}
}

// Items returns a copy of the line items in insertion order.
func (s State) Items() []LineItem {
	return append([]LineItem(nil), s.items...)
}

// Len returns the number of lines.
func (s State) Len() int { return len(s.items) }

// Find returns the line with the given id.
func (s State) Find(id string) (LineItem, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

// TotalQuantity sums quantities across lines.
func (s State) TotalQuantity() int {
	var n int
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Subtotal sums price * quantity across lines.
func (s State) Subtotal() float64 {
	var sum float64
	for _, it := range s.items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Loading reports whether an add is in flight.
func (s State) Loading() bool { return s.loading }

// Err returns the last failure message, or "" when there is none.
func (s State) Err() string { return s.err }

// BeginAdd marks an add in flight and clears the error.
func (s State) BeginAdd() State {
	n := s.clone()
	n.loading = true
	n.err = ""
	return n
}

// CompleteAdd merges item into the line with the same product and size,
// adding to its quantity and leaving its other fields alone, or appends
// item when there is no such line.
func (s State) CompleteAdd(item LineItem) State {
	n := s.clone()
	n.loading = false
	n.merge(item)
	return n
}

// FailAdd records msg.
func (s State) FailAdd(msg string) State {
	n := s.clone()
	n.loading = false
	n.err = msg
	return n
}

// Remove drops the line with id. Unknown ids are a no-op.
func (s State) Remove(id string) State {
	n := s.clone()
	items := n.items[:0]
	for _, it := range n.items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	n.items = items
	n.reindex()
	return n
}

// SetQuantity sets the quantity of the line with id. The value is not
// range checked here.
func (s State) SetQuantity(id string, quantity int) State {
	n := s.clone()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].Quantity = quantity
			break
		}
	}
	return n
}

// Clear empties the cart.
func (s State) Clear() State {
	n := s.clone()
	n.items = nil
	n.index = nil
	return n
}

// ReplaceAll replaces the lines with items. Items sharing a product and
// size are folded together with the same rule as CompleteAdd.
func (s State) ReplaceAll(items []LineItem) State {
	n := s.clone()
	n.items = make([]LineItem, 0, len(items))
	n.index = make(map[Key]int, len(items))
	for _, it := range items {
		n.merge(it)
	}
	return n
}

func (s *State) merge(item LineItem) {
	if s.index == nil {
		s.index = make(map[Key]int)
	}
	if pos, ok := s.index[item.Key()]; ok {
		s.items[pos].Quantity += item.Quantity
		return
	}
	s.index[item.Key()] = len(s.items)
	s.items = append(s.items, item)
}

func (s *State) reindex() {
	s.index = make(map[Key]int, len(s.items))
	for i, it := range s.items {
		if _, ok := s.index[it.Key()]; !ok {
			s.index[it.Key()] = i
		}
	}
}

func (s State) clone() State {
	n := s
	n.items = append([]LineItem(nil), s.items...)
	if s.index != nil {
		n.index = make(map[Key]int, len(s.index)+1)
		for k, v := range s.index {
			n.index[k] = v
		}
	}
	return n
}
