package tryon

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string) Record {
	return Record{
		ID:            id,
		OriginalImage: "uploads/" + id + ".jpg",
		Status:        StatusPending,
		CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestUploadProcessComplete_Scenario(t *testing.T) {
	s := New()

	s = Apply(s, BeginUpload{})
	assert.True(t, s.Loading())
	assert.True(t, s.Uploading())

	s = Apply(s, CompleteUpload{Record: record("t1")})
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, StatusPending, cur.Status)
	assert.False(t, s.Loading())
	require.Len(t, s.History(), 1)
	assert.Equal(t, "t1", s.History()[0].ID)

	s = Apply(s, BeginProcess{})
	cur, _ = s.Current()
	assert.Equal(t, StatusProcessing, cur.Status)
	assert.True(t, s.Processing())

	s = Apply(s, CompleteProcess{ID: "t1", ResultImage: "img.png"})
	cur, _ = s.Current()
	assert.Equal(t, StatusCompleted, cur.Status)
	assert.Equal(t, "img.png", cur.ResultImage)
	assert.Equal(t, "img.png", s.History()[0].ResultImage)
	assert.Equal(t, StatusCompleted, s.History()[0].Status)
	assert.False(t, s.Loading())
}

func TestCompleteUpload_ForcesPending(t *testing.T) {
	r := record("t1")
	r.Status = StatusCompleted
	r.ResultImage = "stale.png"

	s := New().BeginUpload().CompleteUpload(r)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, StatusPending, cur.Status)
	assert.Empty(t, cur.ResultImage)
}

func TestHistory_MostRecentFirst(t *testing.T) {
	s := New()
	const n = 5
	for i := 0; i < n; i++ {
		s = s.BeginUpload().CompleteUpload(record(fmt.Sprintf("t%d", i)))
	}

	h := s.History()
	require.Len(t, h, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("t%d", n-1-i), h[i].ID)
	}
}

func TestCompleteUpload_SameIDMovesToFront(t *testing.T) {
	s := New().CompleteUpload(record("a")).CompleteUpload(record("b")).CompleteUpload(record("a"))

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "a", h[0].ID)
	assert.Equal(t, "b", h[1].ID)
	assert.Equal(t, StatusPending, h[0].Status)
}

func TestCompleteUpload_KnownRecordKeepsStatus(t *testing.T) {
	s := New().CompleteUpload(record("t1")).BeginProcess().CompleteProcess("t1", "r.png")
	s = s.CompleteUpload(record("t1"))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "t1", cur.ID)
	assert.Equal(t, StatusCompleted, cur.Status)
	assert.Equal(t, "r.png", cur.ResultImage)
	require.Len(t, s.History(), 1)
	assert.Equal(t, "r.png", s.History()[0].ResultImage)
}

func TestFailUpload_KeepsCurrent(t *testing.T) {
	s := New().BeginUpload().CompleteUpload(record("t1"))
	s = s.BeginUpload().FailUpload("Failed to upload photo")

	assert.Equal(t, "Failed to upload photo", s.Err())
	assert.False(t, s.Loading())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "t1", cur.ID)
}

func TestBeginProcess_NoCurrent(t *testing.T) {
	s := New().FailUpload("boom").BeginProcess()

	_, ok := s.Current()
	assert.False(t, ok)
	assert.True(t, s.Loading())
	assert.Empty(t, s.Err())
}

func TestCompleteProcess_UpdatesHistoryEntryWhenNotCurrent(t *testing.T) {
	s := New().CompleteUpload(record("t1")).BeginProcess()
	s = s.CompleteUpload(record("t2"))

	s = s.CompleteProcess("t1", "r1.png")

	cur, _ := s.Current()
	assert.Equal(t, "t2", cur.ID)
	assert.Equal(t, StatusPending, cur.Status)

	old, ok := s.Lookup("t1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, old.Status)
	assert.Equal(t, "r1.png", s.History()[1].ResultImage)
}

func TestCompleteProcess_UnknownID(t *testing.T) {
	s := New().CompleteUpload(record("t1")).BeginProcess()
	s = s.CompleteProcess("nope", "x.png")

	cur, _ := s.Current()
	assert.Equal(t, StatusProcessing, cur.Status)
	assert.False(t, s.Loading())
}

func TestCompleteProcess_RequiresProcessing(t *testing.T) {
	s := New().CompleteUpload(record("t1")).CompleteProcess("t1", "x.png")

	cur, _ := s.Current()
	assert.Equal(t, StatusPending, cur.Status)
	assert.Empty(t, cur.ResultImage)
}

func TestFailProcess_FailsCurrentAndHistoryEntry(t *testing.T) {
	s := New().CompleteUpload(record("t1")).BeginProcess().FailProcess("Failed to process try-on")

	cur, _ := s.Current()
	assert.Equal(t, StatusFailed, cur.Status)
	assert.Equal(t, StatusFailed, s.History()[0].Status)
	assert.Equal(t, "Failed to process try-on", s.Err())
	assert.False(t, s.Loading())
}

func TestNoRegressionFromTerminal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(State) State
		want  Status
	}{
		{
			name:  "completed then begin process",
			setup: func(s State) State { return s.BeginProcess().CompleteProcess("t1", "r.png").BeginProcess() },
			want:  StatusCompleted,
		},
		{
			name:  "completed then fail process",
			setup: func(s State) State { return s.BeginProcess().CompleteProcess("t1", "r.png").FailProcess("late") },
			want:  StatusCompleted,
		},
		{
			name:  "failed then complete process",
			setup: func(s State) State { return s.BeginProcess().FailProcess("x").CompleteProcess("t1", "r.png") },
			want:  StatusFailed,
		},
		{
			name:  "failed then begin process",
			setup: func(s State) State { return s.BeginProcess().FailProcess("x").BeginProcess() },
			want:  StatusFailed,
		},
		{
			name: "completed then stale history",
			setup: func(s State) State {
				s = s.BeginProcess().CompleteProcess("t1", "r.png")
				return s.ReplaceHistory([]Record{record("t1")})
			},
			want: StatusCompleted,
		},
		{
			name: "completed then re-uploaded",
			setup: func(s State) State {
				return s.BeginProcess().CompleteProcess("t1", "r.png").CompleteUpload(record("t1"))
			},
			want: StatusCompleted,
		},
		{
			name: "completed then failed history",
			setup: func(s State) State {
				s = s.BeginProcess().CompleteProcess("t1", "r.png")
				failed := record("t1")
				failed.Status = StatusFailed
				return s.ReplaceHistory([]Record{failed})
			},
			want: StatusCompleted,
		},
		{
			name: "failed then completed history",
			setup: func(s State) State {
				s = s.BeginProcess().FailProcess("x")
				done := record("t1")
				done.Status = StatusCompleted
				done.ResultImage = "r.png"
				return s.ReplaceHistory([]Record{done})
			},
			want: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.setup(New().CompleteUpload(record("t1")))
			cur, ok := s.Current()
			require.True(t, ok)
			assert.Equal(t, tt.want, cur.Status)
			r, _ := s.Lookup("t1")
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestBeginClearsError(t *testing.T) {
	s := New().BeginUpload().FailUpload("upload failed")
	require.Equal(t, "upload failed", s.Err())
	assert.Empty(t, s.BeginUpload().Err())

	s = New().CompleteUpload(record("t1")).BeginProcess().FailProcess("render failed")
	require.Equal(t, "render failed", s.Err())
	assert.Empty(t, s.BeginProcess().Err())
}

func TestLoading_TrackedPerFlow(t *testing.T) {
	s := New().BeginUpload().BeginProcess()
	require.True(t, s.Uploading())
	require.True(t, s.Processing())

	s = s.CompleteUpload(record("t1"))
	assert.False(t, s.Uploading())
	assert.True(t, s.Processing())
	assert.True(t, s.Loading())
}

func TestReplaceHistory(t *testing.T) {
	s := New().CompleteUpload(record("cur"))

	done := record("h1")
	done.Status = StatusCompleted
	done.ResultImage = "h1.png"
	failed := record("h2")
	failed.Status = StatusFailed
	failed.ResultImage = "should-drop.png"

	s = s.ReplaceHistory([]Record{done, failed, done})

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "h1", h[0].ID)
	assert.Equal(t, "h1.png", h[0].ResultImage)
	assert.Empty(t, h[1].ResultImage)

	cur, ok := s.Current()
	require.True(t, ok, "current record survives a history replace")
	assert.Equal(t, "cur", cur.ID)
}

func TestReplaceHistory_SharesEntityWithCurrent(t *testing.T) {
	s := New().CompleteUpload(record("t1"))
	s = s.ReplaceHistory([]Record{record("t1"), record("t0")})

	s = s.BeginProcess().CompleteProcess("t1", "r.png")

	cur, _ := s.Current()
	assert.Equal(t, "r.png", cur.ResultImage)
	assert.Equal(t, "r.png", s.History()[0].ResultImage)
}

func TestClearCurrent(t *testing.T) {
	s := New().CompleteUpload(record("t1")).ClearCurrent()

	_, ok := s.Current()
	assert.False(t, ok)
	require.Len(t, s.History(), 1)

	s = s.ReplaceHistory(nil)
	_, ok = s.Lookup("t1")
	assert.False(t, ok, "unreferenced records are dropped from the index")
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	before := New().CompleteUpload(record("t1"))
	after := before.BeginProcess().CompleteProcess("t1", "r.png")

	cur, _ := before.Current()
	assert.Equal(t, StatusPending, cur.Status)
	assert.False(t, before.Loading())

	cur, _ = after.Current()
	assert.Equal(t, StatusCompleted, cur.Status)
}

func TestApply_NilEvent(t *testing.T) {
	s := New().CompleteUpload(record("t1"))
	assert.Equal(t, s, Apply(s, nil))
}
