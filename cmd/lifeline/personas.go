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
)

func personaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "persona",
		Aliases: []string{"personas", "p"},
		Short:   "Manage personas",
	}
	cmd.AddCommand(personaListCmd())
	cmd.AddCommand(personaShowCmd())
	cmd.AddCommand(personaCreateCmd())
	cmd.AddCommand(personaUpdateCmd())
	cmd.AddCommand(personaDeleteCmd())
	return cmd
}

func personaListCmd() *cobra.Command {
	var active string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			if active != "" && active != "true" && active != "false" {
				return fmt.Errorf("--active must be true or false")
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := []domain.Persona{}
				for _, p := range s.Store.Personas() {
					if active == "" || p.IsActive == (active == "true") {
						items = append(items, p)
					}
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				render.PersonaTable(os.Stdout, items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "only active (true) or inactive (false) personas")
	return cmd
}

func personaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a persona with its workstreams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, ok := s.Store.Persona(args[0])
				if !ok {
					return fmt.Errorf("persona %s: %w", args[0], domain.ErrNotFound)
				}
				var owned []domain.Workstream
				for _, ws := range s.Store.Workstreams() {
					if ws.PersonaID == p.ID {
						owned = append(owned, ws)
					}
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"persona": p, "workstreams": owned})
				}
				fmt.Println(render.Persona(p.Name, p.Color))
				fmt.Printf("id: %s  active: %t\n", p.ID, p.IsActive)
				if md := render.Markdown(p.Description, 80); md != "" {
					fmt.Println(md)
				}
				fmt.Println()
				render.WorkstreamTable(os.Stdout, owned)
				return nil
			})
		},
	}
}

func personaCreateCmd() *cobra.Command {
	var in domain.PersonaInput
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inactive {
				f := false
				in.IsActive = &f
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if in.Color == "" {
					in.Color = s.Config.Defaults.PersonaColor
				}
				p, err := s.Store.CreatePersona(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				return printMessage(fmt.Sprintf("created persona %s (%s)", render.Persona(p.Name, p.Color), p.ID))
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "name")
	cmd.Flags().StringVar(&in.Description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&in.Color, "color", "", "hex color, e.g. #3b82f6")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the persona inactive")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func personaUpdateCmd() *cobra.Command {
	var name, description, color string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := domain.PersonaPatch{
				Name:        optionalString(cmd, "name", name),
				Description: optionalString(cmd, "description", description),
				Color:       optionalString(cmd, "color", color),
				IsActive:    optionalBool(cmd, "active", active),
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, err := s.Store.UpdatePersona(ctx, args[0], patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				return printMessage(fmt.Sprintf("updated persona %s", render.Persona(p.Name, p.Color)))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&description, "description", "", "description (markdown)")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func personaDeleteCmd() *cobra.Command {
	return deleteCmd(cascade.Persona, "Delete a persona (--cascade removes its workstreams and tasks)")
}

// deleteCmd builds the delete subcommand for any entity kind.
func deleteCmd(kind cascade.Kind, short string) *cobra.Command {
	var ack bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				msg, err := s.Store.Delete(ctx, kind, args[0], ack)
				if err != nil {
					return err
				}
				return printMessage(msg)
			})
		},
	}
	if kind != cascade.Task {
		cmd.Flags().BoolVar(&ack, "cascade", false, "also delete dependents")
	}
	return cmd
}
