package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/client"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/identity"
)

type joinOptions struct {
	name         string
	identityPath string
}

// NewJoinCmd plays a game from the terminal.
func NewJoinCmd(root *rootOptions) *cobra.Command {
	opts := &joinOptions{}
	cmd := &cobra.Command{
		Use:   "join <host-url> <code>",
		Short: "Join a live quiz as a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(root); err != nil {
				return err
			}
			return runJoin(cmd.Context(), args[0], args[1], opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.name, "name", "", "display name (remembered between games)")
	fs.StringVar(&opts.identityPath, "identity", "", "identity file (defaults to the user config dir)")
	bindEnv(fs)
	return cmd
}

func runJoin(ctx context.Context, baseURL, code string, opts *joinOptions, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := opts.identityPath
	if path == "" {
		var err error
		if path, err = identity.DefaultPath(); err != nil {
			return err
		}
	}
	ids := identity.NewStore(path)
	id, err := ids.ParticipantID()
	if err != nil {
		return err
	}
	name := opts.name
	if name == "" {
		name, _ = ids.Name()
	}
	if name == "" {
		name = "Player-" + id[:4]
	}
	if err := ids.SetName(name); err != nil {
		return err
	}

	player, err := client.Dial(ctx, baseURL, code, id)
	if err != nil {
		return fmt.Errorf("could not reach the host: %w", err)
	}
	defer player.Close()

	if err := player.Join(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s as %s\n", code, name)
	return playLoop(ctx, player, in, out)
}

// playLoop renders every state update and turns typed lines into answers.
func playLoop(ctx context.Context, player *client.Player, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-player.Updates():
			if !ok {
				fmt.Fprintln(out, "Disconnected from host.")
				return nil
			}
			renderPlayer(out, state, player.ID(), player.Replica().HasSubmitted())
		case line := <-lines:
			answerLine(player, line, out)
		}
	}
}

func answerLine(player *client.Player, line string, out io.Writer) {
	replica := player.Replica()
	state := replica.State()
	if state.Status != domain.StatusQuestionActive {
		return
	}
	if replica.HasSubmitted() {
		fmt.Fprintln(out, "Already answered.")
		return
	}
	q, ok := state.CurrentQuestion()
	if !ok {
		return
	}
	optionID, ok := optionFor(q, line)
	if !ok {
		fmt.Fprintf(out, "Pick one of %s-%s.\n", label(0), label(len(q.Options)-1))
		return
	}
	if err := player.Answer(optionID); err != nil {
		fmt.Fprintf(out, "answer not sent: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Answer sent.")
}
