package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/booklist/internal/api"
	"github.com/justyntemme/booklist/internal/auth"
	"github.com/justyntemme/booklist/internal/config"
	"github.com/justyntemme/booklist/internal/display"
	"github.com/justyntemme/booklist/internal/googlebooks"
	"github.com/justyntemme/booklist/internal/logging"
	"github.com/justyntemme/booklist/internal/models"
	"github.com/justyntemme/booklist/internal/search"
	"github.com/justyntemme/booklist/internal/storage"
)

const usage = `usage: booklist <command> [flags]

commands:
  serve    run the HTTP API
  search   run one search and print the results
  shell    interactive search; a new line supersedes the running search
  token    mint a bearer token for the history endpoints
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "search":
		err = runSearch(ctx, os.Args[2:], os.Stdout)
	case "shell":
		err = runShell(ctx, os.Args[2:], os.Stdin, os.Stdout)
	case "token":
		err = runToken(os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "booklist: %v\n", err)
		os.Exit(1)
	}
}

// setup parses the shared -config flag and builds the logger
func setup(fs *flag.FlagSet, args []string) (*config.Config, zerolog.Logger, error) {
	configPath := fs.String("config", os.Getenv("BOOKLIST_CONFIG"), "Path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stderr), nil
}

func newClient(cfg *config.Config, log zerolog.Logger) *googlebooks.Client {
	return googlebooks.NewClient(googlebooks.Options{
		BaseURL:        cfg.Books.BaseURL,
		APIKey:         cfg.Books.APIKey,
		ConnectTimeout: cfg.Books.ConnectTimeout,
		ReadTimeout:    cfg.Books.ReadTimeout,
	}, log)
}

func newConnectivity(cfg *config.Config) search.Connectivity {
	if cfg.ProbeDisabled() {
		return search.Always(true)
	}
	return search.NewDialChecker(cfg.Network.ProbeAddress)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Server bind address (e.g., :8080 or 0.0.0.0:8080)")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}

	// Flag takes precedence over config and env
	bindAddr := cfg.Server.Addr
	if *urlFlag != "" {
		bindAddr = *urlFlag
	}

	if cfg.Server.JWTSecret == "" {
		log.Warn().Msg("BOOKLIST_JWT_SECRET not set, history endpoints will reject every token")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	client := newClient(cfg, log)
	conn := newConnectivity(cfg)
	sessions := search.NewSessions(func(userID string) *search.Searcher {
		return search.NewSearcher(client, search.Options{
			Connectivity: conn,
			History:      db,
			UserID:       userID,
		}, log)
	})

	handler := api.NewHandler(sessions, db, log)
	tokens := auth.NewTokens(cfg.Server.JWTSecret, cfg.Server.TokenTTL)

	r := gin.Default()
	r.Use(corsMiddleware())
	handler.Routes(r, tokens)

	server := &http.Server{
		Addr:              bindAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", bindAddr).Str("data_dir", cfg.DataDir).Msg("Booklist server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runSearch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	modeFlag := fs.String("mode", "title", "Search mode: title, author or subject")
	verbose := fs.Bool("v", false, "Show publisher, page count, rating and link")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}

	mode, err := models.ParseSearchMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %q", err, *modeFlag)
	}

	searcher := search.NewSearcher(newClient(cfg, log), search.Options{
		Connectivity: newConnectivity(cfg),
	}, log)

	result, err := searcher.Search(ctx, strings.Join(fs.Args(), " "), mode)
	if err != nil {
		return err
	}

	renderer := display.NewTextRenderer(out)
	renderer.Verbose = *verbose
	return renderer.Render(result.Books, result.Empty)
}

func runShell(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	modeFlag := fs.String("mode", "title", "Initial search mode: title, author or subject")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}

	mode, err := models.ParseSearchMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %q", err, *modeFlag)
	}

	renderer := display.NewTextRenderer(out)
	searcher := search.NewSearcher(newClient(cfg, log), search.Options{
		Connectivity: newConnectivity(cfg),
		OnResult: func(r search.Result) {
			fmt.Fprintf(out, "\n-- %s %q --\n", r.Mode, r.Term)
			if err := renderer.Render(r.Books, r.Empty); err != nil {
				log.Warn().Err(err).Msg("Failed to render results")
			}
		},
	}, log)

	return shellLoop(ctx, searcher, mode, in, out)
}

// shellLoop reads one search per line. Lines starting with ':' switch the
// mode (:title, :author, :subject) or end the session (:quit).
func shellLoop(ctx context.Context, searcher *search.Searcher, mode models.SearchMode, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Searching by %s. Type :title, :author or :subject to switch, :quit to exit.\n", mode)

	var last *search.Task
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return waitLast(ctx, last)
		case strings.HasPrefix(line, ":"):
			next, err := models.ParseSearchMode(strings.TrimPrefix(line, ":"))
			if err != nil {
				fmt.Fprintf(out, "unknown command %s\n", line)
				continue
			}
			mode = next
			fmt.Fprintf(out, "Searching by %s.\n", mode)
		default:
			last = searcher.Start(ctx, line, mode)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return waitLast(ctx, last)
}

// waitLast lets the most recent search finish before the shell exits
func waitLast(ctx context.Context, task *search.Task) error {
	if task == nil {
		return nil
	}
	_, err := task.Wait(ctx)
	if errors.Is(err, search.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "User ID the token is issued to")
	cfg, _, err := setup(fs, args)
	if err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-user is required")
	}

	token, err := auth.NewTokens(cfg.Server.JWTSecret, cfg.Server.TokenTTL).GenerateToken(*user)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+api.SessionHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
