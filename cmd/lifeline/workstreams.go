package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lifeline/internal/app"
	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/render"
	"lifeline/internal/view"
)

func workstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workstream",
		Aliases: []string{"workstreams", "ws"},
		Short:   "Manage workstreams",
	}
	cmd.AddCommand(workstreamListCmd())
	cmd.AddCommand(workstreamShowCmd())
	cmd.AddCommand(workstreamCreateCmd())
	cmd.AddCommand(workstreamUpdateCmd())
	cmd.AddCommand(deleteCmd(cascade.Workstream, "Delete a workstream (--cascade removes its tasks)"))
	return cmd
}

func workstreamListCmd() *cobra.Command {
	var personaID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workstreams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := []domain.Workstream{}
				for _, ws := range s.Store.Workstreams() {
					if personaID == "" || personaID == view.All || ws.PersonaID == personaID {
						items = append(items, ws)
					}
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				render.WorkstreamTable(os.Stdout, items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&personaID, "persona", "", "persona id filter")
	return cmd
}

func workstreamShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workstream with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				ws, ok := s.Store.Workstream(args[0])
				if !ok {
					return fmt.Errorf("workstream %s: %w", args[0], domain.ErrNotFound)
				}
				f := view.DefaultFilters()
				f.WorkstreamID = ws.ID
				tasks := view.Derive(s.Store.Tasks(), s.Store.Workstreams(), f, s.Sort())
				if viper.GetBool("json") {
					return printJSON(map[string]any{"workstream": ws, "tasks": tasks})
				}
				fmt.Printf("%s  %s  %s\n", ws.Name, render.WorkstreamStatus(ws.Status), render.Priority(ws.Priority))
				fmt.Printf("id: %s  persona: %s\n", ws.ID, render.Persona(ws.PersonaName, ws.PersonaColor))
				if md := render.Markdown(ws.Description, 80); md != "" {
					fmt.Println(md)
				}
				fmt.Println()
				render.TaskTable(os.Stdout, tasks)
				return nil
			})
		},
	}
}

func workstreamCreateCmd() *cobra.Command {
	var in domain.WorkstreamInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if in.Status == "" {
					in.Status = s.Config.Defaults.WorkstreamStatus
				}
				ws, err := s.Store.CreateWorkstream(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ws)
				}
				return printMessage(fmt.Sprintf("created workstream %s (%s)", ws.Name, ws.ID))
			})
		},
	}
	cmd.Flags().StringVar(&in.PersonaID, "persona", "", "owning persona id")
	cmd.Flags().StringVar(&in.Name, "name", "", "name")
	cmd.Flags().StringVar(&in.Description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&in.Status, "status", "", "planning, active, paused, completed or cancelled")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "low, medium, high or critical")
	_ = cmd.MarkFlagRequired("persona")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func workstreamUpdateCmd() *cobra.Command {
	var name, description, status, priority string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a workstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := domain.WorkstreamPatch{
				Name:        optionalString(cmd, "name", name),
				Description: optionalString(cmd, "description", description),
				Status:      optionalString(cmd, "status", status),
				Priority:    optionalString(cmd, "priority", priority),
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				ws, err := s.Store.UpdateWorkstream(ctx, args[0], patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ws)
				}
				return printMessage(fmt.Sprintf("updated workstream %s", ws.Name))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&status, "status", "", "workstream status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	return cmd
}
