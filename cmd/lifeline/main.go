package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lifeline/internal/app"
	"lifeline/internal/cascade"
	"lifeline/internal/config"
	"lifeline/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "lifeline",
	Short: "Lifeline CLI",
	Long: `Lifeline organizes work as personas, workstreams and tasks.
- Persona: a role you play (work, home, side project), with a color.
- Workstream: an ongoing effort owned by one persona, with a status and priority.
- Task: a unit of work in one workstream that moves across the board:
  backlog -> todo -> inprogress -> review -> done.
Deleting a persona or workstream that still has children needs --cascade.
Changes are recorded in an activity log, view it with 'lifeline log tail'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	// A workspace .env never overrides variables already set.
	_ = godotenv.Load(filepath.Join(viper.GetString("workspace"), ".env"))
	viper.SetEnvPrefix("LIFELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("server", "", "API base URL; uses the remote backend when set")
	flags.String("token", "", "bearer token for --server")
	flags.Bool("memory", false, "use a throwaway in-memory backend")
	flags.String("log-level", "", "log level (debug, info, warn, error); defaults to lifeline.yml")
	for _, name := range []string{"workspace", "json", "server", "token", "memory", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(workstreamCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// withSession opens a session and loads the hierarchy before calling fn.
func withSession(ctx context.Context, fn func(context.Context, *app.Session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	s, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Server:    viper.GetString("server"),
		Token:     viper.GetString("token"),
		Memory:    viper.GetBool("memory"),
		Config:    cfg,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Store.Load(ctx); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return fn(ctx, s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMessage(msg string) error {
	if viper.GetBool("json") {
		return printJSON(map[string]string{"message": msg})
	}
	fmt.Println(color.GreenString("✓"), msg)
	return nil
}

func printError(w io.Writer, err error) {
	banner := color.New(color.FgRed, color.Bold).Sprint("error:")
	fmt.Fprintln(w, banner, err)
	var blocked *cascade.BlockedError
	switch {
	case errors.As(err, &blocked):
		fmt.Fprintln(w, color.YellowString("hint:"), "re-run with --cascade to delete dependents too")
	case errors.Is(err, domain.ErrNotFound):
		fmt.Fprintln(w, color.YellowString("hint:"), "check the id with a list command")
	}
}

func optionalString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func optionalBool(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
