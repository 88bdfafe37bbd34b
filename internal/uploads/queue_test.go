package uploads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/towerman/internal/play"
)

var p = play.Play{Quarter: 1, ODK: play.Offense, Down: 1, Distance: 10, StartLine: 20, EndLine: 15, Series: 1}

func TestProgress_Empty(t *testing.T) {
	q := New()
	assert.Equal(t, 1.0, q.Progress())
	assert.Empty(t, q.Snapshot().Tasks)
}

func TestProgress_HalfDone(t *testing.T) {
	q := New()
	for _, n := range []string{"a", "b", "c", "d"} {
		q.Upload(n, []byte(n), p)
	}
	assert.Equal(t, 0.0, q.Progress())

	q.OnDone("a")
	q.OnDone("b")
	assert.Equal(t, 0.5, q.Progress())
	assert.Len(t, q.Snapshot().Tasks, 4)
}

func TestProgress_AllDoneClearsBatch(t *testing.T) {
	q := New()
	q.Upload("a", nil, p)
	q.Upload("b", nil, p)
	q.OnDone("a")
	q.OnDone("b")

	assert.Equal(t, 1.0, q.Progress())
	assert.Empty(t, q.Snapshot().Tasks)
	assert.Equal(t, 1.0, q.Snapshot().Progress)
}

func TestFailedTasksLinger(t *testing.T) {
	q := New()
	q.Upload("a", nil, p)
	q.Upload("b", nil, p)
	q.OnDone("a")
	q.OnError("b", "no game running")

	assert.Equal(t, 0.5, q.Progress())
	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Name)
	assert.Equal(t, "no game running", failed[0].Err)
	assert.True(t, failed[0].Done)
}

func TestUpload_RearmsExistingTask(t *testing.T) {
	q := New()
	q.Upload("a", []byte("x"), p)
	q.Upload("b", nil, p)
	q.OnError("a", "")
	require.Len(t, q.Failed(), 1)
	assert.Equal(t, "upload failed", q.Failed()[0].Err)

	q.Upload("a", []byte("x"), p)
	assert.Empty(t, q.Failed())
	assert.Len(t, q.Snapshot().Tasks, 2)

	q.OnDone("a")
	q.OnDone("b")
	assert.Empty(t, q.Snapshot().Tasks)
}

func TestAcksForUnknownNames(t *testing.T) {
	q := New()
	assert.False(t, q.OnDone("ghost"))
	assert.False(t, q.OnError("ghost", "x"))
	assert.Equal(t, 1.0, q.Progress())
}

func TestReset(t *testing.T) {
	q := New()
	q.Upload("a", nil, p)
	q.Reset()
	assert.Empty(t, q.Snapshot().Tasks)
	assert.Equal(t, 1.0, q.Progress())
}

func TestSnapshotIsCopy(t *testing.T) {
	q := New()
	q.Upload("a", []byte("a"), p)

	snap := q.Snapshot()
	snap.Tasks[0].Done = true
	snap.Tasks[0].Err = "mutated"

	again := q.Snapshot()
	require.Len(t, again.Tasks, 1)
	assert.False(t, again.Tasks[0].Done)
	assert.Empty(t, again.Tasks[0].Err)
}
