package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lifeline/internal/app"
	"lifeline/internal/board"
	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/render"
	"lifeline/internal/view"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskMoveCmd())
	cmd.AddCommand(deleteCmd(cascade.Task, "Delete a task"))
	return cmd
}

type listFlags struct {
	personaID    string
	workstreamID string
	statuses     []string
	sort         string
	desc         bool
	asc          bool
}

func (lf *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.personaID, "persona", view.All, "persona id filter")
	cmd.Flags().StringVar(&lf.workstreamID, "workstream", view.All, "workstream id filter")
	cmd.Flags().StringSliceVar(&lf.statuses, "status", nil, "status filter (repeatable or comma separated)")
	cmd.Flags().StringVar(&lf.sort, "sort", "", "sort field: title, status, priority, workstream, created_at, updated_at")
	cmd.Flags().BoolVar(&lf.desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&lf.asc, "asc", false, "sort ascending")
}

func (lf *listFlags) query(s *app.Session) (view.Filters, view.Sort, error) {
	f := view.DefaultFilters()
	f.PersonaID = lf.personaID
	f.WorkstreamID = lf.workstreamID
	if len(lf.statuses) > 0 {
		f = f.WithStatuses(lf.statuses...)
	}
	sort := s.Sort()
	if lf.sort != "" {
		field, err := view.ParseField(lf.sort)
		if err != nil {
			return f, sort, err
		}
		sort = view.Sort{Field: field, Direction: view.Asc}
	}
	switch {
	case lf.desc:
		sort.Direction = view.Desc
	case lf.asc:
		sort.Direction = view.Asc
	}
	return f, sort, nil
}

func taskListCmd() *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				f, sort, err := lf.query(s)
				if err != nil {
					return err
				}
				tasks := view.Derive(s.Store.Tasks(), s.Store.Workstreams(), f, sort)
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				render.TaskTable(os.Stdout, tasks)
				return nil
			})
		},
	}
	lf.bind(cmd)
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, ok := s.Store.Task(args[0])
				if !ok {
					return fmt.Errorf("task %s: %w", args[0], domain.ErrNotFound)
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("%s  %s  %s\n", t.Title, render.TaskStatus(t.Status), render.Priority(t.Priority))
				fmt.Printf("id: %s  workstream: %s\n", t.ID, render.Persona(t.WorkstreamName, t.PersonaColor))
				if t.DueDate != "" {
					fmt.Printf("due: %s\n", render.Due(t, time.Now()))
				}
				if t.CompletedAt != nil {
					fmt.Printf("completed: %s\n", t.CompletedAt.Local().Format("2006-01-02 15:04"))
				}
				if md := render.Markdown(t.Description, 80); md != "" {
					fmt.Println()
					fmt.Println(md)
				}
				return nil
			})
		},
	}
}

func taskCreateCmd() *cobra.Command {
	var in domain.TaskInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if in.Status == "" {
					in.Status = s.Config.Defaults.TaskStatus
				}
				if in.Priority == "" {
					in.Priority = s.Config.Defaults.TaskPriority
				}
				t, err := s.Store.CreateTask(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				return printMessage(fmt.Sprintf("created task %q in %s (%s)", t.Title, t.WorkstreamName, t.ID))
			})
		},
	}
	cmd.Flags().StringVar(&in.WorkstreamID, "workstream", "", "workstream id")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&in.Status, "status", "", "backlog, todo, inprogress, review or done")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "low, medium, high or critical")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("workstream")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, due string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := domain.TaskPatch{
				Title:       optionalString(cmd, "title", title),
				Description: optionalString(cmd, "description", description),
				Status:      optionalString(cmd, "status", status),
				Priority:    optionalString(cmd, "priority", priority),
				DueDate:     optionalString(cmd, "due", due),
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, err := s.Store.UpdateTask(ctx, args[0], patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				return printMessage(fmt.Sprintf("updated task %q", t.Title))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&status, "status", "", "task status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&due, "due", "", `due date, YYYY-MM-DD ("" clears it)`)
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another board column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				out := s.Board.Drop(ctx, args[0], args[1])
				if out.Err != nil {
					return out.Err
				}
				if viper.GetBool("json") {
					return printJSON(out.Task)
				}
				if out.Phase == board.Idle {
					return printMessage(fmt.Sprintf("task %q is already %s", out.Task.Title, render.TaskStatus(out.To)))
				}
				return printMessage(fmt.Sprintf("moved %q from %s to %s", out.Task.Title, render.TaskStatus(out.From), render.TaskStatus(out.To)))
			})
		},
	}
}
