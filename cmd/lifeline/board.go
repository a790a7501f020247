package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lifeline/internal/app"
	"lifeline/internal/cascade"
	"lifeline/internal/render"
)

func boardCmd() *cobra.Command {
	var lf listFlags
	var counts bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped into status columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				f, sort, err := lf.query(s)
				if err != nil {
					return err
				}
				if err := s.Board.SetScope(ctx, f.WorkstreamID); err != nil {
					// Columns fall back to local totals.
					s.Log.Warn("task counts unavailable", "error", err)
				}
				if counts {
					c := s.Board.CountsFor(f)
					if viper.GetBool("json") {
						return printJSON(c)
					}
					render.Counts(os.Stdout, c)
					return nil
				}
				cols := s.Board.Columns(f, sort)
				if viper.GetBool("json") {
					return printJSON(cols)
				}
				render.Board(os.Stdout, cols)
				return nil
			})
		},
	}
	lf.bind(cmd)
	cmd.Flags().BoolVar(&counts, "counts", false, "print per-status counts only")
	return cmd
}

func depsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "deps <persona|workstream|task> <id>",
		Short:     "Show what a delete would remove",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(cascade.Persona), string(cascade.Workstream), string(cascade.Task)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cascade.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				deps, err := s.Store.Dependencies(ctx, kind, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(deps)
				}
				fmt.Println(render.Dependencies(string(kind), args[1], deps))
				return nil
			})
		},
	}
}
