package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"mealmatch/internal/api"
	"mealmatch/internal/app"
	"mealmatch/internal/auth"
	"mealmatch/internal/config"
	"mealmatch/internal/database"
	"mealmatch/internal/export"
	"mealmatch/internal/ghost"
	"mealmatch/internal/logging"
	"mealmatch/internal/metrics"
	"mealmatch/internal/planner"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if os.Args[1] == "migrate" {
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("migration failed")
		}
		db.Close()
		logging.Info().Str("path", cfg.Database.Path).Msg("database schema is up to date")
		return
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}

	var ghostClient ghost.Client
	if cfg.RequireGhost() == nil {
		ghostClient = ghost.NewClient(cfg)
	}

	application := app.NewApp(cfg, db, ghostClient,
		planner.WithObserver(metrics.NewRecorder(prometheus.DefaultRegisterer)),
	)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		logging.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	cfg := a.Config()

	switch command {
	case "serve":
		if err := cfg.RequireJWT(); err != nil {
			return err
		}
		tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		return serve(ctx, cfg, api.NewServer(a, tokens, prometheus.DefaultGatherer, cfg.HTTP))

	case "plan", "regenerate":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		user := fs.String("user", "", "User ID")
		fs.Parse(args)
		if *user == "" {
			return errors.New("-user is required")
		}

		get := a.Planner.GetOrCreate
		if command == "regenerate" {
			get = a.Planner.Regenerate
		}
		plan, err := get(ctx, *user)
		if err != nil {
			return err
		}
		printPlan(plan)
		return nil

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		user := fs.String("user", "", "User ID")
		format := fs.String("format", "json", "Output format: json or csv")
		out := fs.String("o", "", "Output file (default stdout)")
		fs.Parse(args)

		f, err := export.ParseFormat(*format)
		if err != nil {
			return err
		}
		plan, err := a.Planner.Current(ctx, *user)
		if err != nil {
			return err
		}

		w := os.Stdout
		if *out != "" {
			file, err := os.Create(*out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", *out, err)
			}
			defer file.Close()
			w = file
		}
		return export.WritePlan(w, f, plan)

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		user := fs.String("user", "", "User ID")
		fs.Parse(args)

		if err := cfg.RequireJWT(); err != nil {
			return err
		}
		token, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(*user)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil

	case "ingest":
		res, err := a.IngestRecipes(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("created %d, updated %d, skipped %d, removed %d, failed %d\n",
			res.Created, res.Updated, res.Skipped, res.Removed, res.Failed)
		return nil

	case "import-url":
		fs := flag.NewFlagSet("import-url", flag.ExitOnError)
		owner := fs.String("user", "", "Owner of the imported recipe")
		fs.Parse(args)
		if fs.NArg() != 1 {
			return errors.New("usage: mealmatch import-url [-user ID] <url>")
		}

		rec, err := a.ImportRecipeURL(ctx, fs.Arg(0), *owner)
		if err != nil {
			return err
		}
		fmt.Printf("imported %q (%s) with %d ingredients\n", rec.Title, rec.ID, len(rec.Requirements))
		return nil

	case "cleanup":
		fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
		days := fs.Int("days", 90, "Keep plans for weeks started in the last N days")
		fs.Parse(args)

		affected, err := a.Usage.Cleanup(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d old meal plans\n", affected)
		return nil

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func serve(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logging.Info().Msg("server exited")
	return nil
}

func printPlan(plan *planner.WeeklyPlan) {
	fmt.Printf("Week of %s (generated %s)\n\n", planner.FormatWeek(plan.WeekStart), plan.GeneratedAt.Format("2006-01-02 15:04"))
	for _, d := range plan.Days {
		if d.IsPlaceholder() {
			fmt.Printf("Day %d: %s\n", d.Day, d.Title)
			continue
		}
		fmt.Printf("Day %d: %s (%.0f%%)\n", d.Day, d.Title, d.MatchPercent)
	}
}

func printUsage() {
	fmt.Println("Usage: mealmatch <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve                      Run the HTTP API")
	fmt.Println("  plan -user ID              Show this week's plan, generating it if needed")
	fmt.Println("  regenerate -user ID        Rebuild this week's plan")
	fmt.Println("  export -user ID -format F  Write this week's plan as json or csv")
	fmt.Println("  token -user ID             Issue an API token")
	fmt.Println("  ingest                     Sync recipes from Ghost")
	fmt.Println("  import-url [-user ID] URL  Import a recipe page")
	fmt.Println("  cleanup -days N            Remove old meal plans")
	fmt.Println("  migrate                    Apply database migrations")
}
