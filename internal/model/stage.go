package model

import (
	"fmt"
	"strings"
	"time"
)

// JobHandle is the identifier the scheduler assigned to a submitted stage
type JobHandle string

const dryRunPrefix = "dry-run-"

// DryRunHandle returns the placeholder handle for the n-th dry-run submission.
func DryRunHandle(n int) JobHandle {
	return JobHandle(fmt.Sprintf("%s%d", dryRunPrefix, n))
}

// IsDryRun reports whether h was produced without contacting a scheduler.
func (h JobHandle) IsDryRun() bool {
	return strings.HasPrefix(string(h), dryRunPrefix)
}

func (h JobHandle) String() string { return string(h) }

// JobState is the scheduler-reported state of a job
type JobState int

const (
	StateUnknown JobState = iota
	StatePending
	StateRunning
	StateCompleted
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// InFlight reports whether the job is queued or executing.
func (s JobState) InFlight() bool {
	return s == StatePending || s == StateRunning
}

// Resources are the scheduler resource requests of a stage
type Resources struct {
	CPUs    int
	MemMB   int64
	Time    time.Duration
	JavaMem string
}

// StageOutcome records the skip decision for a stage
type StageOutcome string

const (
	OutcomeSkipped   StageOutcome = "skipped"
	OutcomeSubmitted StageOutcome = "submitted"
)

// StageRecord is what the graph builder decided for one stage
type StageRecord struct {
	Name         string
	Phase        string
	Patient      string
	Sample       string
	Outcome      StageOutcome
	Handle       JobHandle
	Dependencies []JobHandle
	Sentinel     string
	Script       string
	KillOnError  bool
	FanIn        bool
}

// HandleSet is an insertion-ordered set of job handles
type HandleSet struct {
	order []JobHandle
	seen  map[JobHandle]struct{}
}

// NewHandleSet creates a set holding handles.
func NewHandleSet(handles ...JobHandle) *HandleSet {
	s := &HandleSet{seen: make(map[JobHandle]struct{})}
	s.Add(handles...)
	return s
}

// Add inserts handles not yet present. Empty handles are ignored.
func (s *HandleSet) Add(handles ...JobHandle) {
	if s.seen == nil {
		s.seen = make(map[JobHandle]struct{})
	}
	for _, h := range handles {
		if h == "" {
			continue
		}
		if _, ok := s.seen[h]; ok {
			continue
		}
		s.seen[h] = struct{}{}
		s.order = append(s.order, h)
	}
}

// Contains reports whether h is in the set.
func (s *HandleSet) Contains(h JobHandle) bool {
	_, ok := s.seen[h]
	return ok
}

// Len returns the number of handles.
func (s *HandleSet) Len() int {
	return len(s.order)
}

// Slice returns a copy of the handles in insertion order.
func (s *HandleSet) Slice() []JobHandle {
	out := make([]JobHandle, len(s.order))
	copy(out, s.order)
	return out
}

// RunState accumulates everything submitted during one invocation
type RunState struct {
	RunIndex    int
	AllJobs     *HandleSet
	PatientJobs map[string]*HandleSet
	Records     []StageRecord
}

// NewRunState creates an empty run state for run index idx.
func NewRunState(idx int) *RunState {
	return &RunState{
		RunIndex:    idx,
		AllJobs:     NewHandleSet(),
		PatientJobs: make(map[string]*HandleSet),
	}
}

// PatientSet returns the stage job set of a patient, creating it if needed.
func (r *RunState) PatientSet(patient string) *HandleSet {
	set, ok := r.PatientJobs[patient]
	if !ok {
		set = NewHandleSet()
		r.PatientJobs[patient] = set
	}
	return set
}

// Record appends rec and, for submitted stages, tracks its handle. Fan-in
// stages count towards the run but not towards the patient's stage jobs.
func (r *RunState) Record(rec StageRecord) {
	r.Records = append(r.Records, rec)
	if rec.Outcome != OutcomeSubmitted {
		return
	}
	r.AllJobs.Add(rec.Handle)
	if !rec.FanIn && rec.Patient != "" {
		r.PatientSet(rec.Patient).Add(rec.Handle)
	}
}

// Submitted returns the number of submitted stages.
func (r *RunState) Submitted() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == OutcomeSubmitted {
			n++
		}
	}
	return n
}

// Skipped returns the number of skipped stages.
func (r *RunState) Skipped() int {
	return len(r.Records) - r.Submitted()
}
