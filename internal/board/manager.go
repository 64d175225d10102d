package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/streamtasks/internal/fields"
)

var (
	ErrInvalidName        = errors.New("list name is required")
	ErrListExists         = errors.New("list already exists")
	ErrListNotFound       = errors.New("list not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrPendingNotFound    = errors.New("no pending task for user")
	ErrListFull           = errors.New("task list is full")
	ErrDefaultListMissing = errors.New("default viewer list not found")
	ErrNoTask             = errors.New("user has no tracked task")
	ErrAlreadyCompleted   = errors.New("task already completed")
	ErrInvalidStatus      = errors.New("invalid status")
)

type PendingReason string

const (
	ReasonExisting PendingReason = "existing"
	ReasonFull     PendingReason = "full"
	ReasonInvalid  PendingReason = "invalid"
)

type PendingResult struct {
	Success bool          `json:"success"`
	Reason  PendingReason `json:"reason,omitempty"`
}

// StatusChange describes the outcome of a status transition. Changed is
// false when the task was already completed and nothing happened.
type StatusChange struct {
	ListName string
	Task     Task
	Changed  bool
	Progress int
}

// Manager owns the board: lists, the pending queue, progress points and the
// active config. Every method is safe for concurrent use; a single mutex
// serializes them so each mutation and its persist run to completion before
// the next one starts.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	lists    Lists
	pending  []PendingTask
	progress int

	saver    *Saver
	onChange func(View)
	onSweep  func(int)
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		cfg:     NewConfig(fields.FieldData{}),
		lists:   Lists{},
		pending: []PendingTask{},
		now:     time.Now,
	}
}

func (m *Manager) SetSaver(s *Saver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saver = s
}

// SetChangeHook registers fn to receive a fresh view after every change. fn
// runs with the board locked and must not call back into the Manager.
func (m *Manager) SetChangeHook(fn func(View)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	m.now = now
}

func (m *Manager) SetConfig(f fields.FieldData) Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = NewConfig(f)
	m.notifyLocked()
	return m.cfg
}

func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *Manager) Lists() Lists {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked().Lists
}

func (m *Manager) PendingTasks() []PendingTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingTask{}, m.pending...)
}

func (m *Manager) ProgressPoints() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// SetInitialState replaces the whole board with snap. There is no merge.
func (m *Manager) SetInitialState(snap Snapshot) {
	snap = normalizeSnapshot(snap.clone())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = snap.Lists
	m.pending = snap.PendingTasks
	m.progress = snap.ProgressPoints
	m.notifyLocked()
}

// InitializeDefault installs the starting board: a goal list seeded from the
// streamerTask fields and an empty viewer list capped at the viewer limit.
func (m *Manager) InitializeDefault(f fields.FieldData) {
	m.mu.Lock()
	defer m.mu.Unlock()

	goals := f.StreamerTasks()
	if len(goals) == 0 {
		goals = []string{"Example Streamer Task 1", "Example Streamer Task 2"}
	}
	goalList := List{
		Name:    DefaultGoalListName,
		Summary: m.cfg.SessionSummary,
		Tasks:   make([]Task, 0, len(goals)),
	}
	for _, text := range goals {
		goalList.Tasks = append(goalList.Tasks, newTask(KindGoal, text))
	}

	m.lists = Lists{
		goalList,
		{
			Name:  m.cfg.DefaultListName,
			Tasks: []Task{},
			Limit: m.cfg.ViewerTaskLimit,
		},
	}
	m.pending = []PendingTask{}
	m.progress = 0
	m.commitLocked()
}

// Load installs the stored snapshot. It reports false when the store has
// nothing usable, leaving the board untouched.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	m.mu.Lock()
	saver := m.saver
	m.mu.Unlock()
	if saver == nil {
		return false, nil
	}
	snap, ok, err := saver.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	m.SetInitialState(snap)
	return true, nil
}

// LoadOrInitialize applies field data, then restores the stored board or
// falls back to the default one. A load error is returned after the
// fallback so callers can log it.
func (m *Manager) LoadOrInitialize(ctx context.Context, f fields.FieldData) (bool, error) {
	m.SetConfig(f)
	loaded, err := m.Load(ctx)
	if !loaded {
		m.InitializeDefault(f)
	}
	return loaded, err
}

// FindTaskByUsername returns the first task owned by username, scanning
// lists in display order.
func (m *Manager) FindTaskByUsername(username string) (Task, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	li, ti := m.findTaskLocked(username)
	if li < 0 {
		return Task{}, "", false
	}
	return m.lists[li].Tasks[ti], m.lists[li].Name, true
}

func (m *Manager) AddList(name, summary string) bool {
	name = strings.TrimSpace(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" || m.listIndexLocked(name) >= 0 {
		return false
	}
	if strings.TrimSpace(summary) == "" {
		summary = name
	}
	m.lists = append(m.lists, List{Name: name, Summary: summary, Tasks: []Task{}})
	m.commitLocked()
	return true
}

func (m *Manager) DeleteList(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(name)
	if li < 0 {
		return false
	}
	m.lists = append(m.lists[:li], m.lists[li+1:]...)
	m.commitLocked()
	return true
}

// AddTask appends t to the named list. A missing id or status is filled in.
func (m *Manager) AddTask(listName string, t Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(listName)
	if li < 0 {
		return false
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.normalize()
	m.lists[li].Tasks = append(m.lists[li].Tasks, t)
	m.commitLocked()
	return true
}

// UpdateTask applies fn to the task with the given id.
func (m *Manager) UpdateTask(listName, id string, fn func(*Task)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(listName)
	if li < 0 {
		return false
	}
	for i := range m.lists[li].Tasks {
		if m.lists[li].Tasks[i].ID == id {
			fn(&m.lists[li].Tasks[i])
			m.lists[li].Tasks[i].normalize()
			m.commitLocked()
			return true
		}
	}
	return false
}

// RemoveTask deletes the task at a display position.
func (m *Manager) RemoveTask(listName string, index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(listName)
	if li < 0 || index < 0 || index >= len(m.lists[li].Tasks) {
		return false
	}
	m.removeTaskLocked(li, index)
	m.commitLocked()
	return true
}

func (m *Manager) RemoveTaskByID(listName, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(listName)
	if li < 0 {
		return false
	}
	for i := range m.lists[li].Tasks {
		if m.lists[li].Tasks[i].ID == id {
			m.removeTaskLocked(li, i)
			m.commitLocked()
			return true
		}
	}
	return false
}

// CompleteTask marks the task at a display position completed and awards one
// progress point. Completing a completed task changes nothing.
func (m *Manager) CompleteTask(listName string, index int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	li := m.listIndexLocked(listName)
	if li < 0 || index < 0 || index >= len(m.lists[li].Tasks) {
		return m.progress, false
	}
	t := &m.lists[li].Tasks[index]
	if t.Status == StatusCompleted {
		return m.progress, false
	}
	t.Status = StatusCompleted
	t.Completed = true
	m.progress++
	m.commitLocked()
	return m.progress, true
}

// AddPendingTask queues a viewer submission. A user may hold only one
// pending or default-list task at a time.
func (m *Manager) AddPendingTask(username, text string) PendingResult {
	username = strings.TrimSpace(username)
	text = strings.TrimSpace(text)
	if username == "" || text == "" {
		return PendingResult{Reason: ReasonInvalid}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingIndexLocked(username) >= 0 || m.inDefaultListLocked(username) {
		return PendingResult{Reason: ReasonExisting}
	}
	if len(m.pending) >= PendingCapacity {
		return PendingResult{Reason: ReasonFull}
	}
	m.pending = append(m.pending, PendingTask{
		Username:    username,
		Task:        text,
		Status:      StatusPending,
		SubmittedAt: millis(m.now()),
	})
	m.commitLocked()
	return PendingResult{Success: true}
}

func (m *Manager) FindPendingTask(username string) (PendingTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.pendingIndexLocked(username)
	if i < 0 {
		return PendingTask{}, false
	}
	return m.pending[i], true
}

func (m *Manager) RemovePendingTask(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dropPendingLocked(username) {
		return false
	}
	m.commitLocked()
	return true
}

// ApprovePending moves a user's pending submission into the default list.
// Capacity is checked first so a full list leaves the queue untouched; the
// removal and the append are persisted together.
func (m *Manager) ApprovePending(username string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi := m.pendingIndexLocked(username)
	if pi < 0 {
		return Task{}, ErrPendingNotFound
	}
	li := m.listIndexLocked(m.cfg.DefaultListName)
	if li < 0 {
		return Task{}, ErrDefaultListMissing
	}
	if len(m.lists[li].Tasks) >= m.limitLocked(m.lists[li]) {
		return Task{}, ErrListFull
	}

	p := m.pending[pi]
	m.dropPendingLocked(username)
	t := newTask(KindViewer, p.Task)
	t.Username = p.Username
	t.LastSeen = millis(m.now())
	m.lists[li].Tasks = append(m.lists[li].Tasks, t)
	m.commitLocked()
	return t, nil
}

// SetTaskStatus applies a viewer status command (complete, done, pause,
// resume) to the user's task. Completion awards one progress point; a
// completed task is left alone.
func (m *Manager) SetTaskStatus(username, action string) (StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	li, ti := m.findTaskLocked(username)
	if li < 0 {
		return StatusChange{}, ErrNoTask
	}
	t := &m.lists[li].Tasks[ti]
	change := StatusChange{ListName: m.lists[li].Name, Progress: m.progress}
	if t.Status == StatusCompleted {
		change.Task = *t
		return change, nil
	}

	switch strings.ToLower(strings.TrimSpace(action)) {
	case "complete", "done":
		t.Status = StatusCompleted
		t.Completed = true
		m.progress++
	case "pause":
		t.Status = StatusPaused
	case "resume":
		t.Status = StatusActive
	default:
		return StatusChange{}, ErrInvalidStatus
	}
	m.commitLocked()

	change.Task = *t
	change.Changed = true
	change.Progress = m.progress
	return change, nil
}

// MarkDone completes a user's task on a moderator's behalf.
func (m *Manager) MarkDone(username string) (StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	li, ti := m.findTaskLocked(username)
	if li < 0 {
		return StatusChange{}, ErrNoTask
	}
	t := &m.lists[li].Tasks[ti]
	if t.Status == StatusCompleted {
		return StatusChange{ListName: m.lists[li].Name, Task: *t, Progress: m.progress}, ErrAlreadyCompleted
	}
	t.Status = StatusCompleted
	t.Completed = true
	m.progress++
	m.commitLocked()
	return StatusChange{ListName: m.lists[li].Name, Task: *t, Changed: true, Progress: m.progress}, nil
}

// TouchUser records chat activity for username. An offline task comes back
// online; only that transition is persisted.
func (m *Manager) TouchUser(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	li, ti := m.findTaskLocked(username)
	if li < 0 {
		return false
	}
	t := &m.lists[li].Tasks[ti]
	t.LastSeen = millis(m.now())
	if t.Status != StatusOffline {
		return false
	}
	t.Status = StatusActive
	m.commitLocked()
	return true
}

func (m *Manager) IncrementProgress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress++
	m.commitLocked()
	return m.progress
}

// SetProgress overwrites the counter. Negative values clamp to zero.
func (m *Manager) SetProgress(points int) {
	if points < 0 {
		points = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = points
	m.commitLocked()
}

// Reset empties the board and persists the empty state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = Lists{}
	m.pending = []PendingTask{}
	m.progress = 0
	m.commitLocked()
}

// Save queues a persist of the current board without changing it.
func (m *Manager) Save() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saver != nil {
		m.saver.Schedule(m.snapshotLocked())
	}
}

// Flush blocks until any queued persist has been written.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	saver := m.saver
	m.mu.Unlock()
	if saver == nil {
		return nil
	}
	return saver.Flush(ctx)
}

func (m *Manager) commitLocked() {
	if m.saver != nil {
		m.saver.Schedule(m.snapshotLocked())
	}
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	if m.onChange != nil {
		m.onChange(m.viewLocked())
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Lists:          m.lists,
		PendingTasks:   m.pending,
		ProgressPoints: m.progress,
	}.clone()
}

func (m *Manager) viewLocked() View {
	snap := m.snapshotLocked()
	return View{
		Lists:          snap.Lists,
		PendingTasks:   snap.PendingTasks,
		ProgressPoints: snap.ProgressPoints,
		Config:         m.cfg,
		Tier:           m.cfg.Tier(snap.ProgressPoints),
		Percent:        m.cfg.Percent(snap.ProgressPoints),
	}
}

// listIndexLocked matches list names exactly. "Viewers" and "viewers" are
// different lists.
func (m *Manager) listIndexLocked(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, l := range m.lists {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func (m *Manager) findTaskLocked(username string) (int, int) {
	if strings.TrimSpace(username) == "" {
		return -1, -1
	}
	for li, l := range m.lists {
		for ti, t := range l.Tasks {
			if t.OwnedBy(username) {
				return li, ti
			}
		}
	}
	return -1, -1
}

func (m *Manager) pendingIndexLocked(username string) int {
	for i, p := range m.pending {
		if strings.EqualFold(p.Username, username) {
			return i
		}
	}
	return -1
}

func (m *Manager) dropPendingLocked(username string) bool {
	kept := m.pending[:0]
	removed := false
	for _, p := range m.pending {
		if strings.EqualFold(p.Username, username) {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	m.pending = kept
	return removed
}

func (m *Manager) inDefaultListLocked(username string) bool {
	li := m.listIndexLocked(m.cfg.DefaultListName)
	if li < 0 {
		return false
	}
	for _, t := range m.lists[li].Tasks {
		if t.OwnedBy(username) {
			return true
		}
	}
	return false
}

func (m *Manager) limitLocked(l List) int {
	if l.Limit > 0 {
		return l.Limit
	}
	return m.cfg.ViewerTaskLimit
}

func (m *Manager) removeTaskLocked(li, ti int) {
	tasks := m.lists[li].Tasks
	m.lists[li].Tasks = append(tasks[:ti], tasks[ti+1:]...)
}

func newTask(kind TaskKind, text string) Task {
	return Task{
		ID:     uuid.NewString(),
		Kind:   kind,
		Text:   strings.TrimSpace(text),
		Status: StatusActive,
	}
}

func normalizeSnapshot(snap Snapshot) Snapshot {
	if snap.Lists == nil {
		snap.Lists = Lists{}
	}
	for li := range snap.Lists {
		if snap.Lists[li].Tasks == nil {
			snap.Lists[li].Tasks = []Task{}
		}
		for ti := range snap.Lists[li].Tasks {
			t := &snap.Lists[li].Tasks[ti]
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			t.normalize()
		}
	}
	if snap.PendingTasks == nil {
		snap.PendingTasks = []PendingTask{}
	}
	for i := range snap.PendingTasks {
		if snap.PendingTasks[i].Status == "" {
			snap.PendingTasks[i].Status = StatusPending
		}
	}
	if snap.ProgressPoints < 0 {
		snap.ProgressPoints = 0
	}
	return snap
}
