package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/render"
)

var (
	sayUser        string
	sayMod         bool
	sayBroadcaster bool
	emulateUser    string

	taskKind     string
	taskUsername string

	listSummary string

	sweepAt string
)

var sayCmd = &cobra.Command{
	Use:   "say <text>...",
	Short: "Post a chat message as a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Say(cmd.Context(), sayUser, strings.Join(args, " "), sayMod, sayBroadcaster)
		if err != nil {
			return err
		}
		printChat(cmd, res)
		return nil
	},
}

var emulateCmd = &cobra.Command{
	Use:   "emulate <text>...",
	Short: "Inject a chat message with broadcaster privileges",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Emulate(cmd.Context(), emulateUser, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printChat(cmd, res)
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Render the current board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := newClient().Board(cmd.Context())
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", render.Board(v, flagWidth))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow board updates from the overlay stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return newClient().Watch(ctx, func(v board.View) {
			printf(cmd, "\033[H\033[2J%s\n", render.Board(v, flagWidth))
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage task lists",
}

var listAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().AddList(cmd.Context(), args[0], listSummary); err != nil {
			return err
		}
		printf(cmd, "list %q created\n", args[0])
		return nil
	},
}

var listRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteList(cmd.Context(), args[0]); err != nil {
			return err
		}
		printf(cmd, "list %q deleted\n", args[0])
		return nil
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks by list and position",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <list> <text>...",
	Short: "Append a task to a list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		if err := newClient().AddTask(cmd.Context(), args[0], text, taskKind, taskUsername); err != nil {
			return err
		}
		printf(cmd, "task added to %q\n", args[0])
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <list> <index>",
	Short: "Complete the task at a position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		changed, points, err := newClient().CompleteTask(cmd.Context(), args[0], index)
		if err != nil {
			return err
		}
		if !changed {
			printf(cmd, "nothing changed, progress %d\n", points)
			return nil
		}
		printf(cmd, "task completed, progress %d\n", points)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <list> <index>",
	Short: "Remove the task at a position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		if err := newClient().RemoveTask(cmd.Context(), args[0], index); err != nil {
			return err
		}
		printf(cmd, "task removed\n")
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <points>",
	Short: "Set the progress counter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("points must be an integer: %w", err)
		}
		got, err := newClient().SetProgress(cmd.Context(), points)
		if err != nil {
			return err
		}
		printf(cmd, "progress %d\n", got)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending [<username> <task>...]",
	Short: "List pending submissions, or queue one",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if len(args) == 0 {
			snap, err := c.State(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.PendingTasks) == 0 {
				printf(cmd, "no pending tasks\n")
			}
			for _, p := range snap.PendingTasks {
				printf(cmd, "%s: %s\n", p.Username, p.Task)
			}
			return nil
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: pending <username> <task>")
		}
		res, err := c.AddPending(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("not queued: %s", res.Reason)
		}
		printf(cmd, "queued for %s\n", args[0])
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the offline sweep now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var at time.Time
		if sweepAt != "" {
			d, err := time.ParseDuration(sweepAt)
			if err != nil {
				return fmt.Errorf("--ahead: %w", err)
			}
			at = time.Now().Add(d)
		}
		n, err := newClient().Sweep(cmd.Context(), at)
		if err != nil {
			return err
		}
		printf(cmd, "%d task(s) marked offline\n", n)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every list, pending submission and the progress counter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newClient().Reset(cmd.Context()); err != nil {
			return err
		}
		printf(cmd, "board reset\n")
		return nil
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Write the board to the store now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newClient().Flush(cmd.Context()); err != nil {
			return err
		}
		printf(cmd, "flushed\n")
		return nil
	},
}

func init() {
	sayCmd.Flags().StringVarP(&sayUser, "user", "u", "viewer", "display name of the sender")
	sayCmd.Flags().BoolVar(&sayMod, "mod", false, "send with the moderator tag")
	sayCmd.Flags().BoolVar(&sayBroadcaster, "broadcaster", false, "send with the broadcaster tag")
	emulateCmd.Flags().StringVarP(&emulateUser, "user", "u", "", "display name of the sender")

	listAddCmd.Flags().StringVar(&listSummary, "summary", "", "title shown above the list")
	listCmd.AddCommand(listAddCmd, listRmCmd)

	taskAddCmd.Flags().StringVar(&taskKind, "kind", "goal", "task kind: goal, viewer or mod")
	taskAddCmd.Flags().StringVar(&taskUsername, "user", "", "owner for viewer tasks")
	taskCmd.AddCommand(taskAddCmd, taskDoneCmd, taskRmCmd)

	sweepCmd.Flags().StringVar(&sweepAt, "ahead", "", "sweep as if this much time had passed, e.g. 10m")

	rootCmd.AddCommand(sayCmd, emulateCmd, boardCmd, watchCmd, listCmd, taskCmd,
		progressCmd, pendingCmd, sweepCmd, resetCmd, flushCmd)
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("index must be a non-negative integer, got %q", raw)
	}
	return index, nil
}

func printChat(cmd *cobra.Command, res ChatResult) {
	switch {
	case !res.Handled:
		printf(cmd, "(no reply)\n")
	case res.IsError:
		printf(cmd, "error: %s\n", res.Reply)
	default:
		printf(cmd, "%s\n", res.Reply)
	}
}
