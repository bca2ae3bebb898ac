// Package tryon holds the client-side state of the virtual try-on workflow:
// the current record, the history of records, and the busy/error signals
// driven by upload and render requests.
//
// State is an immutable value. Every transition returns a new State and
// leaves the receiver untouched, so callers may keep old snapshots around.
//
// A record can be referenced from two places at once (as the current
// record and as a history entry). Both places hold only the record id and
// resolve it through a single index, so an update for an id is seen from
// every location that references it.
package tryon

// State is the try-on workflow state. The zero value is the empty initial
// state: no current record, empty history, not loading, no error.
type State struct {
	records    map[string]Record
	currentID  string
	hasCurrent bool
	history    []string // most recent first
	uploading  bool
	processing bool
	err        string
}

// New returns the initial state.
func New() State {
	return State{}
}

// Current returns the current record, if any.
func (s State) Current() (Record, bool) {
	if !s.hasCurrent {
		return Record{}, false
	}
	r, ok := s.records[s.currentID]
	return r, ok
}

// History returns the history, most recent first.
func (s State) History() []Record {
	out := make([]Record, 0, len(s.history))
	for _, id := range s.history {
		out = append(out, s.records[id])
	}
	return out
}

// Lookup resolves id through the record index.
func (s State) Lookup(id string) (Record, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Loading reports whether any request is in flight.
func (s State) Loading() bool { return s.uploading || s.processing }

// Uploading reports whether an upload is in flight.
func (s State) Uploading() bool { return s.uploading }

// Processing reports whether a render request is in flight.
func (s State) Processing() bool { return s.processing }

// Err returns the last failure message, or "" when there is none.
func (s State) Err() string { return s.err }

// BeginUpload marks an upload in flight and clears the error.
func (s State) BeginUpload() State {
	n := s.clone()
	n.uploading = true
	n.err = ""
	return n
}

// CompleteUpload makes r the current record and prepends it to history.
// A new record always starts pending, whatever status it arrived with. An
// id the index already holds past pending keeps its known record.
func (s State) CompleteUpload(r Record) State {
	n := s.clone()
	n.uploading = false

	r.Status = StatusPending
	r = reconcile(n.records, r.normalize())
	n.records[r.ID] = r
	n.currentID, n.hasCurrent = r.ID, true

	history := make([]string, 0, len(n.history)+1)
	history = append(history, r.ID)
	for _, id := range n.history {
		if id != r.ID {
			history = append(history, id)
		}
	}
	n.history = history
	return n.prune()
}

// FailUpload records msg; the current record is unchanged.
func (s State) FailUpload(msg string) State {
	n := s.clone()
	n.uploading = false
	n.err = msg
	return n
}

// BeginProcess moves a pending current record to processing. Loading and
// error update even when there is no current record.
func (s State) BeginProcess() State {
	n := s.clone()
	n.processing = true
	n.err = ""
	if r, ok := n.Current(); ok && r.Status == StatusPending {
		r.Status = StatusProcessing
		n.records[r.ID] = r
	}
	return n
}

// CompleteProcess marks the record with id completed with resultImage.
// Only a processing record can complete; any other status is left as is.
func (s State) CompleteProcess(id, resultImage string) State {
	n := s.clone()
	n.processing = false
	if r, ok := n.records[id]; ok && r.Status == StatusProcessing {
		r.Status = StatusCompleted
		r.ResultImage = resultImage
		n.records[id] = r
	}
	return n
}

// FailProcess records msg and fails the current record unless it already
// reached a terminal status.
func (s State) FailProcess(msg string) State {
	n := s.clone()
	n.processing = false
	n.err = msg
	if r, ok := n.Current(); ok && !r.Status.Terminal() {
		r.Status = StatusFailed
		r = r.normalize()
		n.records[r.ID] = r
	}
	return n
}

// ReplaceHistory replaces the history with records, in the given order.
// Duplicate ids keep their first occurrence. An incoming record never
// moves a known record backwards along the status order.
func (s State) ReplaceHistory(records []Record) State {
	n := s.clone()
	seen := make(map[string]bool, len(records))
	history := make([]string, 0, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		history = append(history, r.ID)
		n.records[r.ID] = reconcile(n.records, r.normalize())
	}
	n.history = history
	return n.prune()
}

// ClearCurrent drops the current record. History is untouched.
func (s State) ClearCurrent() State {
	n := s.clone()
	n.currentID, n.hasCurrent = "", false
	return n.prune()
}

func reconcile(known map[string]Record, incoming Record) Record {
	prev, ok := known[incoming.ID]
	if !ok {
		return incoming
	}
	if prev.Status.Terminal() || incoming.Status.rank() < prev.Status.rank() {
		return prev
	}
	return incoming
}

func (s State) clone() State {
	n := s
	n.records = make(map[string]Record, len(s.records)+1)
	for id, r := range s.records {
		n.records[id] = r
	}
	n.history = append([]string(nil), s.history...)
	return n
}

// prune drops index entries no location references any more.
func (s State) prune() State {
	live := make(map[string]bool, len(s.history)+1)
	for _, id := range s.history {
		live[id] = true
	}
	if s.hasCurrent {
		live[s.currentID] = true
	}
	for id := range s.records {
		if !live[id] {
			delete(s.records, id)
		}
	}
	return s
}
