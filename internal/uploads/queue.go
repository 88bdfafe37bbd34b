// Package uploads tracks outbound photo uploads by name until the relay acknowledges them.
package uploads

import (
	"slices"
	"sync/atomic"

	"github.com/DoyleJ11/towerman/internal/play"
)

type Task struct {
	Name  string
	Photo []byte
	Play  play.Play
	Done  bool
	Err   string
}

func (t Task) Failed() bool { return t.Err != "" }

// Snapshot is what readers see of the queue.
type Snapshot struct {
	Tasks    []Task
	Progress float64
}

// Queue has a single writer; Snapshot may be read from any goroutine.
type Queue struct {
	tasks    []Task
	progress float64
	snap     atomic.Pointer[Snapshot]
}

func New() *Queue {
	q := &Queue{}
	q.update()
	return q
}

// Upload registers name for sending. An existing task with the same name is re-armed.
func (q *Queue) Upload(name string, photo []byte, p play.Play) {
	if i := q.index(name); i >= 0 {
		q.tasks[i].Done = false
		q.tasks[i].Err = ""
	} else {
		q.tasks = append(q.tasks, Task{Name: name, Photo: photo, Play: p})
	}
	q.update()
}

// OnDone marks name acknowledged. Unknown names are ignored.
func (q *Queue) OnDone(name string) bool {
	i := q.index(name)
	if i < 0 {
		return false
	}
	q.tasks[i].Done = true
	q.update()
	return true
}

func (q *Queue) OnError(name, msg string) bool {
	i := q.index(name)
	if i < 0 {
		return false
	}
	if msg == "" {
		msg = "upload failed"
	}
	q.tasks[i].Done = true
	q.tasks[i].Err = msg
	q.update()
	return true
}

func (q *Queue) Failed() []Task {
	var out []Task
	for _, t := range q.tasks {
		if t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

func (q *Queue) Progress() float64 { return q.progress }

// Snapshot returns a copy of the published queue. Photo bytes are shared.
func (q *Queue) Snapshot() Snapshot {
	snap := *q.snap.Load()
	snap.Tasks = slices.Clone(snap.Tasks)
	return snap
}

// Reset drops every task, acknowledged or not.
func (q *Queue) Reset() {
	q.tasks = nil
	q.update()
}

func (q *Queue) index(name string) int {
	return slices.IndexFunc(q.tasks, func(t Task) bool { return t.Name == name })
}

// update recomputes progress. A batch that finished without errors is cleared.
func (q *Queue) update() {
	q.progress = q.computeProgress()
	q.snap.Store(&Snapshot{Tasks: slices.Clone(q.tasks), Progress: q.progress})
}

func (q *Queue) computeProgress() float64 {
	if len(q.tasks) == 0 {
		return 1
	}
	done := 0
	for _, t := range q.tasks {
		if t.Done && !t.Failed() {
			done++
		}
	}
	switch done {
	case 0:
		return 0
	case len(q.tasks):
		q.tasks = nil
		return 1
	default:
		return float64(done) / float64(len(q.tasks))
	}
}
