package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/observability"
	"github.com/ent0n29/streamtasks/internal/policy"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

const HelpText = "Commands: !task <description> submits a task for approval | " +
	"!status <complete|pause|resume> updates yours | " +
	"mods: !addtask <list> <text>, !approve <user>, !reject <user>, !donetask <user>"

const internalErrorText = "Something went wrong handling that command."

// Dispatcher turns chat messages into board mutations and feedback.
type Dispatcher struct {
	board   *board.Manager
	sink    Sink
	metrics *observability.Metrics
}

func NewDispatcher(b *board.Manager, sink Sink, metrics *observability.Metrics) *Dispatcher {
	if sink == nil {
		sink = LogSink{}
	}
	return &Dispatcher{board: b, sink: sink, metrics: metrics}
}

// Handle processes one chat message. The sender's presence is recorded
// first, whatever the message says. ok is false when there is no feedback,
// which covers plain chat, unknown verbs and privileged commands from
// unprivileged senders.
func (d *Dispatcher) Handle(ctx context.Context, msg protocol.ChatMessage) (reply Reply, ok bool) {
	start := time.Now()
	verb := "none"
	outcome := "ignored"
	defer func() {
		if r := recover(); r != nil {
			log.Printf("command %s from %q panicked: %v", verb, msg.DisplayName, r)
			reply = Reply{Text: internalErrorText, IsError: true}
			ok = true
			outcome = "panic"
			d.say(ctx, reply)
		}
		d.observe(verb, outcome, time.Since(start))
	}()

	username := strings.TrimSpace(msg.DisplayName)
	if username == "" {
		return Reply{}, false
	}
	d.board.TouchUser(username)

	cmd, known := Parse(msg.Text)
	if !known {
		return Reply{}, false
	}
	verb = strings.TrimPrefix(cmd.Verb, "!")
	privileged := policy.IsPrivileged(msg.Tags)

	switch cmd.Verb {
	case VerbAddTask:
		if !privileged {
			outcome = "denied"
			return Reply{}, false
		}
		reply, outcome = d.addTask(username, cmd)
	case VerbTask:
		reply, outcome = d.submitTask(username, cmd)
	case VerbStatus:
		reply, outcome, ok = d.updateStatus(username, privileged, cmd)
		if !ok {
			return Reply{}, false
		}
	case VerbApprove:
		if !privileged {
			outcome = "denied"
			return Reply{}, false
		}
		reply, outcome = d.approve(cmd)
	case VerbReject:
		if !privileged {
			outcome = "denied"
			return Reply{}, false
		}
		reply, outcome = d.reject(cmd)
	case VerbDoneTask:
		if !privileged {
			outcome = "denied"
			return Reply{}, false
		}
		reply, outcome = d.doneTask(cmd)
	case VerbHelp:
		reply, outcome = Reply{Text: HelpText}, "ok"
	default:
		return Reply{}, false
	}

	d.say(ctx, reply)
	return reply, true
}

func (d *Dispatcher) addTask(adder string, cmd Command) (Reply, string) {
	listName, text := cmd.Arg(0), cmd.Rest(1)
	if listName == "" || text == "" {
		return Reply{Text: "Usage: !addtask <ListName> <TaskDescription>"}, "usage"
	}
	ok := d.board.AddTask(listName, board.Task{
		Kind:    board.KindMod,
		Text:    text,
		AddedBy: adder,
	})
	if !ok {
		return Reply{Text: fmt.Sprintf("List %q not found.", listName)}, "not_found"
	}
	return Reply{Text: fmt.Sprintf("Task added to %s.", listName)}, "ok"
}

func (d *Dispatcher) submitTask(username string, cmd Command) (Reply, string) {
	text := cmd.Rest(0)
	if text == "" {
		return Reply{Text: "Usage: !task <YourTaskDescription>"}, "usage"
	}
	res := d.board.AddPendingTask(username, text)
	switch {
	case res.Success:
		return Reply{Text: fmt.Sprintf("@%s, your task has been submitted for approval!", username)}, "ok"
	case res.Reason == board.ReasonExisting:
		return Reply{Text: fmt.Sprintf("@%s, you already have a pending or active task.", username)}, "rejected"
	default:
		return Reply{Text: fmt.Sprintf("@%s, the submission queue is currently full. Please try again later.", username)}, "full"
	}
}

// updateStatus acts on the sender's task, or on the named user's task when a
// privileged sender names one. A completed task gives no feedback.
func (d *Dispatcher) updateStatus(username string, privileged bool, cmd Command) (Reply, string, bool) {
	action := strings.ToLower(cmd.Arg(0))
	if action == "" {
		return Reply{Text: "Usage: !status <complete|pause|resume>"}, "usage", true
	}
	target := username
	if privileged {
		if named := normalizeUser(cmd.Arg(1)); named != "" {
			target = named
		}
	}

	change, err := d.board.SetTaskStatus(target, action)
	switch {
	case errors.Is(err, board.ErrNoTask):
		return Reply{Text: fmt.Sprintf("@%s, you don't have an active task.", target)}, "not_found", true
	case errors.Is(err, board.ErrInvalidStatus):
		return Reply{Text: "Invalid status. Use 'complete', 'pause', or 'resume'."}, "usage", true
	case err != nil:
		return Reply{Text: internalErrorText, IsError: true}, "error", true
	case !change.Changed:
		return Reply{}, "noop", false
	}

	switch change.Task.Status {
	case board.StatusCompleted:
		return Reply{Text: fmt.Sprintf("@%s's task is now complete! Great job!", target)}, "ok", true
	case board.StatusPaused:
		return Reply{Text: fmt.Sprintf("@%s's task is paused.", target)}, "ok", true
	default:
		return Reply{Text: fmt.Sprintf("@%s's task has been resumed.", target)}, "ok", true
	}
}

func (d *Dispatcher) approve(cmd Command) (Reply, string) {
	target := normalizeUser(cmd.Arg(0))
	if target == "" {
		return Reply{Text: "Usage: !approve <username>"}, "usage"
	}
	_, err := d.board.ApprovePending(target)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf("@%s's task has been approved and added to the list!", target)}, "ok"
	case errors.Is(err, board.ErrPendingNotFound):
		return Reply{Text: fmt.Sprintf("No pending task found for %s.", target)}, "not_found"
	case errors.Is(err, board.ErrListFull):
		name := d.board.Config().DefaultListName
		return Reply{Text: fmt.Sprintf("The task list for %q is full.", name)}, "full"
	case errors.Is(err, board.ErrDefaultListMissing):
		log.Printf("approve %s: default list %q not found", target, d.board.Config().DefaultListName)
		return Reply{Text: "Error: Default viewer list not found. Please configure the widget.", IsError: true}, "error"
	default:
		log.Printf("approve %s: %v", target, err)
		return Reply{Text: internalErrorText, IsError: true}, "error"
	}
}

func (d *Dispatcher) reject(cmd Command) (Reply, string) {
	target := normalizeUser(cmd.Arg(0))
	if target == "" {
		return Reply{Text: "Usage: !reject <username>"}, "usage"
	}
	if !d.board.RemovePendingTask(target) {
		return Reply{Text: fmt.Sprintf("No pending task found for %s.", target)}, "not_found"
	}
	return Reply{Text: fmt.Sprintf("@%s's task has been rejected.", target)}, "ok"
}

func (d *Dispatcher) doneTask(cmd Command) (Reply, string) {
	target := normalizeUser(cmd.Arg(0))
	if target == "" {
		return Reply{Text: "Usage: !donetask <username>"}, "usage"
	}
	_, err := d.board.MarkDone(target)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf("Task for %s marked as done. Progress increased!", target)}, "ok"
	case errors.Is(err, board.ErrNoTask):
		return Reply{Text: fmt.Sprintf("No active task found for user %s.", target)}, "not_found"
	case errors.Is(err, board.ErrAlreadyCompleted):
		return Reply{Text: fmt.Sprintf("%s's task is already completed.", target)}, "noop"
	default:
		log.Printf("donetask %s: %v", target, err)
		return Reply{Text: internalErrorText, IsError: true}, "error"
	}
}

func (d *Dispatcher) say(ctx context.Context, reply Reply) {
	if err := d.sink.Say(ctx, reply); err != nil {
		log.Printf("feedback delivery failed: %v", err)
	}
}

func (d *Dispatcher) observe(verb, outcome string, elapsed time.Duration) {
	if d.metrics == nil {
		return
	}
	d.metrics.ChatMessages.WithLabelValues(verb).Inc()
	if verb != "none" {
		d.metrics.ObserveCommand(verb, outcome, elapsed)
	}
}
