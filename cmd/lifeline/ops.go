package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"lifeline/internal/app"
	"lifeline/internal/backend"
	"lifeline/internal/config"
	"lifeline/internal/domain"
	"lifeline/internal/render"
	"lifeline/internal/repo"
	"lifeline/internal/server"
)

const followInterval = 2 * time.Second

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server over the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetString("server") != "" || viper.GetBool("memory") {
				return fmt.Errorf("serve needs the local workspace database; drop --server and --memory")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := app.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			e, conn, err := app.OpenEngine(cmd.Context(), viper.GetString("workspace"), cfg, logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			authCfg := server.AuthConfig{JWTSecret: jwtSecret(cfg)}
			if authCfg.JWTSecret == "" {
				logger.Warn("no jwt secret configured; the API is open to anyone who can reach it")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Lifeline API on http://%s%s (docs at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to server.base_path)")
	return cmd
}

func jwtSecret(cfg *config.Config) string {
	if s := strings.TrimSpace(viper.GetString("jwt_secret")); s != "" {
		return s
	}
	return cfg.Server.JWTSecret
}

func tokenCmd() *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	var save bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := server.IssueToken(jwtSecret(cfg), subject, roles, ttl)
			if err != nil {
				return err
			}
			if save {
				path := filepath.Join(viper.GetString("workspace"), ".env")
				if err := setEnvValue(path, "LIFELINE_TOKEN", token); err != nil {
					return err
				}
				return printMessage("saved LIFELINE_TOKEN to " + path)
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"token": token})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime; 0 never expires")
	cmd.Flags().BoolVar(&save, "save", false, "write the token to the workspace .env")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// setEnvValue sets key in a dotenv file, keeping the other entries.
func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	return godotenv.Write(env, path)
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
	}
	cmd.AddCommand(logTailCmd())
	return cmd
}

// eventFeed reads the activity log from the local engine or a server.
type eventFeed interface {
	latest(ctx context.Context, f repo.EventFilters) ([]domain.Event, error)
	after(ctx context.Context, id int64, limit int) ([]domain.Event, error)
}

type localFeed struct{ s *app.Session }

func (l localFeed) latest(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return l.s.Engine.LatestEvents(ctx, f)
}

func (l localFeed) after(ctx context.Context, id int64, limit int) ([]domain.Event, error) {
	return l.s.Engine.EventsAfter(ctx, id, limit)
}

type remoteFeed struct{ r backend.Remote }

func (r remoteFeed) latest(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	page, err := r.r.Client.EventsPage(ctx, f.Limit, "")
	if err != nil {
		return nil, backend.RemoteError(err)
	}
	return page.Items, nil
}

func (r remoteFeed) after(ctx context.Context, id int64, limit int) ([]domain.Event, error) {
	items, err := r.r.Client.EventsAfter(ctx, id, limit)
	return items, backend.RemoteError(err)
}

func feedFor(s *app.Session) (eventFeed, error) {
	switch svc := s.Service.(type) {
	case backend.Remote:
		return remoteFeed{r: svc}, nil
	}
	if s.Engine == nil {
		return nil, fmt.Errorf("the %s backend keeps no activity log", s.Mode)
	}
	return localFeed{s: s}, nil
}

func logTailCmd() *cobra.Command {
	var n int
	var follow bool
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				feed, err := feedFor(s)
				if err != nil {
					return err
				}
				f.Limit = n
				events, err := feed.latest(ctx, f)
				if err != nil {
					return err
				}
				slices.Reverse(events)
				if err := printEvents(events); err != nil {
					return err
				}
				if !follow {
					return nil
				}
				var cursor int64
				if len(events) > 0 {
					cursor = events[len(events)-1].ID
				}
				ticker := time.NewTicker(followInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
					next, err := feed.after(ctx, cursor, 100)
					if err != nil {
						s.Log.Warn("fetch events failed", "error", err)
						continue
					}
					if len(next) == 0 {
						continue
					}
					cursor = next[len(next)-1].ID
					if err := printEvents(next); err != nil {
						return err
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling for new events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter, e.g. task.status.updated")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "persona, workstream or task")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func printEvents(events []domain.Event) error {
	if viper.GetBool("json") {
		return printJSON(events)
	}
	if len(events) > 0 {
		render.EventTable(os.Stdout, events)
	}
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Workspace configuration (lifeline.yml)",
	}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default lifeline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(viper.GetString("workspace"), force)
			if err != nil {
				return err
			}
			return printMessage("wrote " + path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
