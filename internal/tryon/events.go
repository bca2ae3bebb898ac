package tryon

// Event is one of the named inputs accepted by the try-on workflow state.
// The set is closed; see Apply.
type Event interface {
	tryOnEvent()
}

// BeginUpload marks an upload attempt in flight.
type BeginUpload struct{}

// CompleteUpload carries the record created by the server for the uploaded photo.
type CompleteUpload struct {
	Record Record
}

// FailUpload reports a failed upload.
type FailUpload struct {
	Message string
}

// BeginProcess marks a render request in flight for the current record.
type BeginProcess struct{}

// CompleteProcess carries the render result for the record with ID.
type CompleteProcess struct {
	ID          string
	ResultImage string
}

// FailProcess reports a failed render.
type FailProcess struct {
	Message string
}

// ReplaceHistory bulk-replaces the history, e.g. after fetching it from the server.
type ReplaceHistory struct {
	Records []Record
}

// ClearCurrent drops the current record, leaving history untouched.
type ClearCurrent struct{}

func (BeginUpload) tryOnEvent()     {}
func (CompleteUpload) tryOnEvent()  {}
func (FailUpload) tryOnEvent()      {}
func (BeginProcess) tryOnEvent()    {}
func (CompleteProcess) tryOnEvent() {}
func (FailProcess) tryOnEvent()     {}
func (ReplaceHistory) tryOnEvent()  {}
func (ClearCurrent) tryOnEvent()    {}

// Apply is the transition function: it returns the state that follows s
// after e. It never mutates s. Unknown events leave the state unchanged.
func Apply(s State, e Event) State {
	switch ev := e.(type) {
	case BeginUpload:
		return s.BeginUpload()
	case CompleteUpload:
		return s.CompleteUpload(ev.Record)
	case FailUpload:
		return s.FailUpload(ev.Message)
	case BeginProcess:
		return s.BeginProcess()
	case CompleteProcess:
		return s.CompleteProcess(ev.ID, ev.ResultImage)
	case FailProcess:
		return s.FailProcess(ev.Message)
	case ReplaceHistory:
		return s.ReplaceHistory(ev.Records)
	case ClearCurrent:
		return s.ClearCurrent()
	default:
		return s
	}
}
