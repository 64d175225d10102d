package board

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TaskKind string

const (
	// KindGoal is a streamer goal task seeded from field data or added
	// through the automation surface.
	KindGoal TaskKind = "goal"
	// KindViewer is an approved viewer submission, owned by a username.
	KindViewer TaskKind = "viewer"
	// KindMod is a task a moderator or the broadcaster added with !addtask.
	KindMod TaskKind = "mod"
)

type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusPaused    TaskStatus = "paused"
	StatusOffline   TaskStatus = "offline"
	StatusCompleted TaskStatus = "completed"
	StatusPending   TaskStatus = "pending"
)

// Task is one entry of a list. Kind decides which of Username/AddedBy are
// meaningful. LastSeen is unix milliseconds, zero when never seen.
type Task struct {
	ID        string     `json:"id"`
	Kind      TaskKind   `json:"kind"`
	Text      string     `json:"text"`
	Username  string     `json:"username,omitempty"`
	AddedBy   string     `json:"addedBy,omitempty"`
	Status    TaskStatus `json:"status"`
	Completed bool       `json:"completed"`
	LastSeen  int64      `json:"lastSeen,omitempty"`
}

// UnmarshalJSON also accepts the older widget shapes: viewer tasks carried
// their description in "task", and tasks without a kind or status.
func (t *Task) UnmarshalJSON(b []byte) error {
	type taskAlias Task
	var raw struct {
		taskAlias
		LegacyTask string `json:"task"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Task(raw.taskAlias)
	if t.Text == "" {
		t.Text = raw.LegacyTask
	}
	t.normalize()
	return nil
}

func (t *Task) normalize() {
	if t.Kind == "" {
		switch {
		case t.Username != "":
			t.Kind = KindViewer
		case t.AddedBy != "":
			t.Kind = KindMod
		default:
			t.Kind = KindGoal
		}
	}
	if t.Completed {
		t.Status = StatusCompleted
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.Status == StatusCompleted {
		t.Completed = true
	}
}

// OwnedBy reports whether the task belongs to username, ignoring case.
func (t Task) OwnedBy(username string) bool {
	return t.Username != "" && strings.EqualFold(t.Username, username)
}

// Label is the display line used by renderers.
func (t Task) Label() string {
	switch t.Kind {
	case KindViewer:
		return t.Username + ": " + t.Text
	case KindMod:
		if t.AddedBy != "" {
			return fmt.Sprintf("%s (by %s)", t.Text, t.AddedBy)
		}
	}
	return t.Text
}

// List is a named, ordered task list. Limit zero means the configured
// viewer task limit applies.
type List struct {
	Name        string `json:"-"`
	Tasks       []Task `json:"tasks"`
	Summary     string `json:"summary,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	LastChecked int64  `json:"lastChecked,omitempty"`
}

func (l List) clone() List {
	out := l
	out.Tasks = make([]Task, len(l.Tasks))
	copy(out.Tasks, l.Tasks)
	return out
}

// Title is what renderers show above the list.
func (l List) Title() string {
	if strings.TrimSpace(l.Summary) != "" {
		return l.Summary
	}
	return l.Name
}

// Lists is the ordered set of lists. Its JSON form is an object keyed by
// list name; key order is preserved in both directions.
type Lists []List

func (ls Lists) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range ls {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.Name)
		if err != nil {
			return nil, err
		}
		if l.Tasks == nil {
			l.Tasks = []Task{}
		}
		val, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ls *Lists) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*ls = Lists{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lists: expected object, got %v", tok)
	}
	out := Lists{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("lists: expected list name, got %v", tok)
		}
		var l List
		if err := dec.Decode(&l); err != nil {
			return fmt.Errorf("lists: decode %q: %w", name, err)
		}
		l.Name = name
		if l.Tasks == nil {
			l.Tasks = []Task{}
		}
		out = append(out, l)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ls = out
	return nil
}

// PendingTask is a viewer submission waiting for a moderator decision.
type PendingTask struct {
	Username    string     `json:"username"`
	Task        string     `json:"task"`
	Status      TaskStatus `json:"status"`
	SubmittedAt int64      `json:"submittedAt,omitempty"`
}

// Snapshot is the persisted shape of the board.
type Snapshot struct {
	Lists          Lists         `json:"lists"`
	PendingTasks   []PendingTask `json:"pendingTasks"`
	ProgressPoints int           `json:"progressPoints"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Lists:          make(Lists, len(s.Lists)),
		PendingTasks:   make([]PendingTask, len(s.PendingTasks)),
		ProgressPoints: s.ProgressPoints,
	}
	for i, l := range s.Lists {
		out.Lists[i] = l.clone()
	}
	copy(out.PendingTasks, s.PendingTasks)
	return out
}

// View is the read-only surface handed to renderers.
type View struct {
	Lists          Lists         `json:"lists"`
	PendingTasks   []PendingTask `json:"pendingTasks"`
	ProgressPoints int           `json:"progressPoints"`
	Config         Config        `json:"config"`
	Tier           int           `json:"tier"`
	Percent        float64       `json:"percent"`
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
