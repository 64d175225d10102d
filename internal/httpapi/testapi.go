package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/policy"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

const (
	emulateDefaultUser = "TestUser"
)

type addListRequest struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type addTaskRequest struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	AddedBy  string `json:"added_by"`
	Kind     string `json:"kind"`
}

type progressRequest struct {
	Points *int `json:"points"`
}

type pendingRequest struct {
	Username string `json:"username"`
	Task     string `json:"task"`
}

type emulateRequest struct {
	Text string       `json:"text"`
	User string       `json:"user"`
	Tags *policy.Tags `json:"tags"`
}

type sweepRequest struct {
	NowMS int64 `json:"now_ms"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// testRoutes is the automation surface used by taskctl and browser tests.
// Task positions are display indexes, matching what a viewer sees.
func (s *Server) testRoutes(r chi.Router) {
	r.Get("/state", s.handleTestState)
	r.Post("/lists", s.handleTestAddList)
	r.Delete("/lists/{name}", s.handleTestDeleteList)
	r.Post("/lists/{name}/tasks", s.handleTestAddTask)
	r.Post("/lists/{name}/tasks/{index}/complete", s.handleTestCompleteTask)
	r.Delete("/lists/{name}/tasks/{index}", s.handleTestDeleteTask)
	r.Put("/progress", s.handleTestSetProgress)
	r.Post("/pending", s.handleTestAddPending)
	r.Post("/emulate", s.handleTestEmulate)
	r.Post("/sweep", s.handleTestSweep)
	r.Post("/reset", s.handleTestReset)
	r.Post("/flush", s.handleTestFlush)
}

func (s *Server) handleTestState(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleTestAddList(w http.ResponseWriter, r *http.Request) {
	var req addListRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", board.ErrInvalidName.Error())
		return
	}
	if !s.board.AddList(req.Name, req.Summary) {
		respondError(w, http.StatusConflict, "list_exists", board.ErrListExists.Error())
		return
	}
	respondJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (s *Server) handleTestDeleteList(w http.ResponseWriter, r *http.Request) {
	if !s.board.DeleteList(listParam(r)) {
		respondError(w, http.StatusNotFound, "list_not_found", board.ErrListNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleTestAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	task := board.Task{
		Kind:     board.TaskKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Text:     req.Text,
		Username: strings.TrimSpace(req.Username),
		AddedBy:  strings.TrimSpace(req.AddedBy),
	}
	if task.Username != "" {
		task.LastSeen = time.Now().UnixMilli()
	}
	switch task.Kind {
	case "", board.KindGoal, board.KindViewer, board.KindMod:
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "kind must be goal, viewer or mod")
		return
	}
	if !s.board.AddTask(listParam(r), task) {
		respondError(w, http.StatusNotFound, "list_not_found", board.ErrListNotFound.Error())
		return
	}
	respondJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (s *Server) handleTestCompleteTask(w http.ResponseWriter, r *http.Request) {
	index, ok := taskIndex(w, r)
	if !ok {
		return
	}
	points, changed := s.board.CompleteTask(listParam(r), index)
	respondJSON(w, http.StatusOK, map[string]any{
		"changed":         changed,
		"progress_points": points,
	})
}

func (s *Server) handleTestDeleteTask(w http.ResponseWriter, r *http.Request) {
	index, ok := taskIndex(w, r)
	if !ok {
		return
	}
	if !s.board.RemoveTask(listParam(r), index) {
		respondError(w, http.StatusNotFound, "task_not_found", board.ErrTaskNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleTestSetProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Points == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "points is required")
		return
	}
	s.board.SetProgress(*req.Points)
	respondJSON(w, http.StatusOK, map[string]int{"progress_points": s.board.ProgressPoints()})
}

func (s *Server) handleTestAddPending(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res := s.board.AddPendingTask(req.Username, req.Task)
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusConflict
		if res.Reason == board.ReasonInvalid {
			status = http.StatusBadRequest
		}
	}
	respondJSON(w, status, res)
}

// handleTestEmulate injects a chat message. Sender and tags default to the
// broadcaster so privileged commands can be exercised without a platform.
func (s *Server) handleTestEmulate(w http.ResponseWriter, r *http.Request) {
	var req emulateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	msg := protocol.ChatMessage{
		Type:        protocol.TypeChatMessage,
		Text:        req.Text,
		DisplayName: strings.TrimSpace(req.User),
		Tags:        policy.Tags{Broadcaster: true},
	}
	if msg.DisplayName == "" {
		msg.DisplayName = emulateDefaultUser
	}
	if req.Tags != nil {
		msg.Tags = *req.Tags
	}
	reply, ok := s.dispatcher.Handle(r.Context(), msg)
	respondJSON(w, http.StatusOK, chatMessageResponse{
		Handled: ok,
		Reply:   reply.Text,
		IsError: reply.IsError,
	})
}

func (s *Server) handleTestSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	now := time.Now()
	if req.NowMS > 0 {
		now = time.UnixMilli(req.NowMS)
	}
	respondJSON(w, http.StatusOK, map[string]int{"marked_offline": s.board.SweepOffline(now)})
}

func (s *Server) handleTestReset(w http.ResponseWriter, _ *http.Request) {
	s.board.Reset()
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleTestFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Flush(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store_write_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

// listParam undoes any escaping left in list names such as "Stream Goals".
func listParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func taskIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
