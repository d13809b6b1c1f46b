package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskdeck/internal/model"
	"taskdeck/internal/task"
)

// intent emits a ui:* event and resolves with the first matching
// controller:* reply. Dispatch is synchronous, so the reply arrives before
// Emit returns.
func intent(a *app, name string, okEvents []string, args ...any) (event string, payload []any, err error) {
	var unsubs []func()
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	done := false
	for _, ev := range okEvents {
		ev := ev
		unsubs = append(unsubs, a.bus.Once(ev, func(args ...any) {
			if done {
				return
			}
			done = true
			event, payload = ev, args
		}))
	}
	unsubs = append(unsubs, a.bus.Once(task.ControllerError, func(args ...any) {
		if done {
			return
		}
		done = true
		msg, op := "operation failed", ""
		if len(args) > 0 {
			if m, ok := args[0].(string); ok {
				msg = m
			}
		}
		if len(args) > 1 {
			if o, ok := args[1].(string); ok {
				op = o
			}
		}
		err = fmt.Errorf("%s failed: %s", op, msg)
	}))

	a.bus.Emit(name, args...)
	if !done {
		return "", nil, fmt.Errorf("no response for %s", name)
	}
	return event, payload, err
}

func payloadAt[T any](payload []any, i int) (T, bool) {
	var zero T
	if i >= len(payload) {
		return zero, false
	}
	v, ok := payload[i].(T)
	return v, ok
}

func printTask(t *task.Task) {
	status := " "
	if t.Completed() {
		status = "x"
	}
	due := ""
	if d := t.DueDate(); d != nil {
		due = "  due " + *d
		if t.IsOverdue() {
			due += " (overdue)"
		}
	}
	fmt.Printf("[%s] %-8s %-8s %s%s\n      id %s\n", status, t.Type(), t.Priority(), t.Title(), due, t.ID())
	if desc := t.Description(); desc != "" {
		fmt.Printf("      %s\n", desc)
	}
}

func printTasks(tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return
	}
	for _, t := range tasks {
		printTask(t)
	}
}

func newAddCmd() *cobra.Command {
	var (
		typ     string
		in      task.Input
		maxOcc  int
		hours   float64
		depends []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "basic", "task type: basic, urgent, recurring, project")
	cmd.Flags().StringVarP(&in.Description, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&in.Priority, "priority", "p", "", "priority: high, medium, low")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&in.EscalationLevel, "escalation", 0, "urgent: escalation level")
	cmd.Flags().StringVar(&in.RecurrencePattern, "pattern", "", "recurring: daily, weekly, monthly, yearly")
	cmd.Flags().IntVar(&in.RecurrenceInterval, "interval", 0, "recurring: interval")
	cmd.Flags().IntVar(&maxOcc, "max-occurrences", 0, "recurring: max occurrences")
	cmd.Flags().StringVar(&in.ProjectName, "project", "", "project: project name")
	cmd.Flags().StringVar(&in.Milestone, "milestone", "", "project: milestone")
	cmd.Flags().Float64Var(&hours, "hours", -1, "project: estimated hours")
	cmd.Flags().Float64Var(&in.ActualHours, "actual-hours", 0, "project: hours spent so far")
	cmd.Flags().IntVar(&in.Progress, "progress", 0, "project: completion percentage (0-100)")
	cmd.Flags().StringSliceVar(&depends, "depends", nil, "project: dependency task ids")

	cmd.RunE = run(func(ctx context.Context, a *app) error {
		in.Title = cmd.Flags().Arg(0)
		if maxOcc > 0 {
			in.MaxOccurrences = &maxOcc
		}
		if hours >= 0 {
			in.EstimatedHours = &hours
		}
		in.Dependencies = depends

		_, payload, err := intent(a, task.UITaskCreate,
			[]string{task.ControllerTaskAdded}, in, model.TaskType(typ))
		if err != nil {
			return err
		}
		if t, ok := payloadAt[*task.Task](payload, 0); ok {
			printTask(t)
		}
		return nil
	})
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		status, priority, search, sortBy string
		overdue                          bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
	}
	cmd.Flags().StringVar(&status, "status", "all", "all, completed, incomplete")
	cmd.Flags().StringVar(&priority, "priority", "all", "all, high, medium, low")
	cmd.Flags().StringVar(&search, "search", "", "substring over title and description")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue tasks")
	cmd.Flags().StringVar(&sortBy, "sort", "created", "priority, dueDate, created, updated, title")

	cmd.RunE = run(func(ctx context.Context, a *app) error {
		patch := task.FilterPatch{
			Status:   &status,
			Priority: &priority,
			Search:   &search,
			Overdue:  &overdue,
			SortBy:   &sortBy,
		}
		_, payload, err := intent(a, task.UIFilterChange,
			[]string{task.ControllerRefresh}, patch)
		if err != nil {
			return err
		}
		if tasks, ok := payloadAt[[]*task.Task](payload, 0); ok {
			printTasks(tasks)
		}
		return nil
	})
	return cmd
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
	}
	title := cmd.Flags().String("title", "", "new title")
	desc := cmd.Flags().String("desc", "", "new description")
	priority := cmd.Flags().String("priority", "", "new priority")
	due := cmd.Flags().String("due", "", "new due date (YYYY-MM-DD, empty clears)")

	cmd.RunE = run(func(ctx context.Context, a *app) error {
		var p task.Patch
		if cmd.Flags().Changed("title") {
			p.Title = title
		}
		if cmd.Flags().Changed("desc") {
			p.Description = desc
		}
		if cmd.Flags().Changed("priority") {
			p.Priority = priority
		}
		if cmd.Flags().Changed("due") {
			p.DueDate = due
		}
		if p.Empty() {
			return fmt.Errorf("nothing to update")
		}

		_, payload, err := intent(a, task.UITaskUpdate,
			[]string{task.ControllerTaskUpdated}, model.TaskID(cmd.Flags().Arg(0)), p)
		if err != nil {
			return err
		}
		if t, ok := payloadAt[*task.Task](payload, 0); ok {
			printTask(t)
		}
		return nil
	})
	return cmd
}

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Toggle task completion",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		_, payload, err := intent(a, task.UITaskToggle,
			[]string{task.ControllerTaskUpdated}, model.TaskID(cmd.Flags().Arg(0)))
		if err != nil {
			return err
		}
		if t, ok := payloadAt[*task.Task](payload, 0); ok {
			printTask(t)
		}
		return nil
	})
	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		_, _, err := intent(a, task.UITaskDelete,
			[]string{task.ControllerTaskDeleted}, model.TaskID(cmd.Flags().Arg(0)))
		if err != nil {
			return err
		}
		fmt.Println("deleted", cmd.Flags().Arg(0))
		return nil
	})
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		st := a.svc.Stats()
		fmt.Printf("total      %d\n", st.Total)
		fmt.Printf("completed  %d (%.0f%%)\n", st.Completed, st.CompletionRate*100)
		fmt.Printf("incomplete %d\n", st.Incomplete)
		fmt.Printf("overdue    %d\n", st.Overdue)
		fmt.Printf("priority   high=%d medium=%d low=%d\n",
			st.ByPriority[model.PriorityHigh],
			st.ByPriority[model.PriorityMedium],
			st.ByPriority[model.PriorityLow])
		return nil
	})
	return cmd
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Print a versioned snapshot of the task collection",
	}
	out := cmd.Flags().StringP("out", "o", "", "write snapshot to file instead of stdout")

	cmd.RunE = run(func(ctx context.Context, a *app) error {
		_, payload, err := intent(a, task.UIBackupRequest,
			[]string{task.ControllerBackupReady})
		if err != nil {
			return err
		}
		snap, _ := payloadAt[string](payload, 0)
		if snap == "" {
			return errors.New("nothing stored, no snapshot produced")
		}
		if *out == "" {
			fmt.Println(snap)
			return nil
		}
		return os.WriteFile(*out, []byte(snap), 0o600)
	})
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <snapshot-file>",
		Short: "Restore the task collection from a snapshot",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		b, err := os.ReadFile(cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		_, payload, err := intent(a, task.UIRestoreRequest,
			[]string{task.ControllerRestoreDone}, string(b))
		if err != nil {
			return err
		}
		if n, ok := payloadAt[int](payload, 0); ok {
			fmt.Printf("restored %d tasks\n", n)
		}
		return nil
	})
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a task as an iCalendar event",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		ics, err := a.svc.ExportICS(model.TaskID(cmd.Flags().Arg(0)))
		if err != nil {
			return err
		}
		fmt.Print(ics)
		return nil
	})
	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create a local user",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		u, err := a.users.Create(ctx, cmd.Flags().Arg(0), cmd.Flags().Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("created user %s (%s)\n", u.Username, u.ID)
		return nil
	})
	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Check credentials against the local user store",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = run(func(ctx context.Context, a *app) error {
		u, err := a.users.Authenticate(ctx, cmd.Flags().Arg(0), cmd.Flags().Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("welcome back, %s\n", u.Username)
		return nil
	})
	return cmd
}
