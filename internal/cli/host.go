package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/route"
	transport "live-quiz-service/internal/transport/http"
)

type hostOptions struct {
	code      string
	source    string
	quiz      string
	file      string
	topic     string
	publicURL string
	redact    bool
	console   bool
}

// NewHostCmd starts a host process serving one game plus any created over the API.
func NewHostCmd(root *rootOptions) *cobra.Command {
	opts := &hostOptions{}
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a live quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.code, "code", "", "join code for the initial game (generated when empty)")
	fs.StringVar(&opts.source, "source", "", "quiz source: static, file, postgres, sqlite, generate")
	fs.StringVar(&opts.quiz, "quiz", "", "quiz id to load")
	fs.StringVar(&opts.file, "file", "", "YAML quiz file for the file source")
	fs.StringVar(&opts.topic, "topic", "", "topic for generated quizzes")
	fs.StringVar(&opts.publicURL, "public-url", "", "base URL players open")
	fs.BoolVar(&opts.redact, "redact-answers", false, "hide correct answers from players until revealed")
	fs.BoolVar(&opts.console, "console", true, "read operator commands from stdin")
	bindEnv(fs)
	return cmd
}

func (o *hostOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.source != "" {
		cfg.Quiz.Source = o.source
	}
	if o.quiz != "" {
		cfg.Quiz.ID = o.quiz
	}
	if o.file != "" {
		cfg.Quiz.File = o.file
	}
	if o.topic != "" {
		cfg.Quiz.Topic = o.topic
	}
	if o.publicURL != "" {
		cfg.Server.PublicURL = o.publicURL
	}
	if cmd.Flags().Changed("redact-answers") {
		cfg.Game.RedactAnswers = o.redact
	}
}

func runHost(ctx context.Context, cfg config.Config, opts *hostOptions, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	service := app.NewGameService(b.games, b.quizzes, app.GameServiceOptions{
		QuizID:        quizID(cfg),
		Shuffle:       cfg.ShuffleQuestions(),
		RedactAnswers: cfg.Game.RedactAnswers,
		IdleTimeout:   config.TTLDuration(cfg.Game.IdleTimeout, 0),
	})
	defer service.Shutdown(context.Background())

	host, err := service.Create(ctx, opts.code)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}

	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + cfg.Server.Port
	}
	router := transport.NewRouter(service, transport.RouterOptions{
		PublicURL:      cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MessageRate:    cfg.Game.MessageRate,
		MessageBurst:   cfg.Game.MessageBurst,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	link := route.JoinLink(publicURL, host.Code())
	printJoinInfo(out, host.Code(), publicURL, link)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("game", host.Code()).Msg("starting quiz host")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down host...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.Shutdown(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		service.RunReaper(ctx)
		return nil
	})
	if b.redis != nil {
		g.Go(func() error {
			b.redis.RunRefresher(ctx)
			return nil
		})
	}
	if opts.console {
		// not part of the group: a blocked stdin read must not hold up shutdown
		go runConsole(ctx, host, in, out, stop)
	}
	return g.Wait()
}

func printJoinInfo(out io.Writer, code, publicURL, link string) {
	fmt.Fprintf(out, "\nJoin code: %s\nHost:      %s\nPlayers:   %s\n", code, publicURL, link)
	if q, err := qrcode.New(link, qrcode.Medium); err == nil {
		fmt.Fprintln(out, q.ToSmallString(false))
	}
	fmt.Fprintln(out, "Commands: [enter]/next, reset, status, sim <name>, quit")
}

// runConsole is the operator's keyboard: every line is one command for the game's host.
func runConsole(ctx context.Context, host *app.Host, in io.Reader, out io.Writer, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if done := consoleCommand(ctx, host, strings.TrimSpace(scanner.Text()), out); done {
			quit()
			return
		}
	}
}

// consoleCommand executes one operator command and reports whether the operator asked to quit.
func consoleCommand(ctx context.Context, host *app.Host, line string, out io.Writer) bool {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}

	switch cmd {
	case "", "n", "next":
		advanced, err := host.Advance(ctx)
		if err != nil {
			fmt.Fprintf(out, "advance failed: %v\n", err)
			return false
		}
		if !advanced {
			fmt.Fprintln(out, "nothing to advance")
		}
	case "r", "reset":
		if err := host.Reset(ctx); err != nil {
			fmt.Fprintf(out, "reset: %v\n", err)
		}
	case "s", "status":
	case "sim":
		name := "Test Player"
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		if err := host.Join(ctx, "sim_"+strings.ToLower(strings.ReplaceAll(name, " ", "_")), name); err != nil {
			fmt.Fprintf(out, "simulate: %v\n", err)
		}
	case "q", "quit", "exit":
		return true
	default:
		fmt.Fprintf(out, "unknown command %q\n", cmd)
		return false
	}

	state, err := host.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(out, "status: %v\n", err)
		return false
	}
	renderHost(out, state)
	return false
}
