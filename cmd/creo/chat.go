package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oron-mozes/creo-sub000/dispatch"
	"github.com/oron-mozes/creo-sub000/transport"
)

// renderWait bounds how long the prompt waits for a turn's final message.
const renderWait = 2 * time.Second

type chatOptions struct {
	user          string
	session       string
	message       string
	authenticated bool
	displayName   string
}

func newChatCmd(st *state) *cobra.Command {
	opts := chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to creo in the terminal",
		Long: `Start an interactive conversation. Lines starting with a slash are commands:

  /login    sign in and receive any answer held behind the login prompt
  /logout   sign out
  /status   show the session's stage, profile and brief
  /reset    forget everything creo knows about you in this process
  /quit     leave`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, st, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "local-user", "user id")
	cmd.Flags().StringVarP(&opts.session, "session", "s", "default", "session id")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "send one message and exit")
	cmd.Flags().BoolVar(&opts.authenticated, "authenticated", false, "start signed in")
	cmd.Flags().StringVar(&opts.displayName, "name", "", "display name shared with the assistant")

	return cmd
}

func runChat(cmd *cobra.Command, st *state, opts chatOptions) error {
	ctx := cmd.Context()

	a, err := wireApp(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			st.logger.Warn("chat.close.failed", "error", err.Error())
		}
	}()

	if opts.authenticated {
		a.identity.Authenticate(opts.user)
	}
	if opts.displayName != "" {
		a.identity.SetDisplayName(opts.user, opts.displayName)
	}

	st.watch()

	msgs, leave := a.hub.Subscribe(opts.session)
	console := transport.NewConsole(cmd.OutOrStdout())
	finals := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)
	sweepCtx, stopSweep := context.WithCancel(gctx)

	g.Go(func() error {
		for msg := range msgs {
			console.Render(msg)
			if msg.Kind == transport.KindFinal {
				select {
				case finals <- struct{}{}:
				default:
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		a.registry.RunSweeper(sweepCtx, st.cfg.Registry.SweepInterval)
		return nil
	})

	g.Go(func() error {
		defer leave()
		defer stopSweep()

		s := &chatSession{app: a, opts: opts, out: cmd.OutOrStdout(), finals: finals}
		if opts.message != "" {
			return s.send(gctx, opts.message)
		}
		return s.repl(gctx, cmd.InOrStdin())
	})

	return g.Wait()
}

type chatSession struct {
	app    *app
	opts   chatOptions
	out    io.Writer
	finals <-chan struct{}
}

func (s *chatSession) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := s.command(ctx, line)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.send(ctx, line); err != nil {
			return err
		}
	}
}

func (s *chatSession) send(ctx context.Context, text string) error {
	_, err := s.app.dispatcher.Dispatch(ctx, dispatch.Request{
		UserID:    s.opts.user,
		SessionID: s.opts.session,
		Message:   text,
	})
	if err != nil {
		return err
	}
	s.waitRendered(ctx)
	return nil
}

func (s *chatSession) waitRendered(ctx context.Context) {
	select {
	case <-s.finals:
	case <-ctx.Done():
	case <-time.After(renderWait):
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (s *chatSession) command(ctx context.Context, line string) (bool, error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true, nil

	case "/login":
		s.app.identity.Authenticate(s.opts.user)
		fmt.Fprintln(s.out, "signed in")
		ok, err := s.app.dispatcher.ReplayPending(ctx, s.opts.user, s.opts.session)
		if err != nil {
			return false, err
		}
		if ok {
			s.waitRendered(ctx)
		}
		return false, nil

	case "/logout":
		s.app.identity.Revoke(s.opts.user)
		fmt.Fprintln(s.out, "signed out")
		return false, nil

	case "/reset":
		if err := s.app.registry.Clear(ctx, s.opts.user); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "memory cleared")
		return false, nil

	case "/status":
		return false, s.status()

	default:
		return false, errors.New("unknown command, try /login, /logout, /status, /reset or /quit")
	}
}

func (s *chatSession) status() error {
	mem, err := s.app.registry.Session(s.opts.user, s.opts.session)
	if err != nil {
		fmt.Fprintln(s.out, "no conversation yet")
		return nil
	}

	snap := mem.Snapshot()
	fmt.Fprintf(s.out, "stage: %s\n", snap.Stage)
	fmt.Fprintf(s.out, "turns: %d\n", len(snap.Turns))
	fmt.Fprintf(s.out, "business profile: %v\n", snap.BusinessProfile != nil)
	fmt.Fprintf(s.out, "campaign brief: %v\n", snap.CampaignBrief != nil)
	for worker, status := range snap.WorkerStatuses {
		fmt.Fprintf(s.out, "%s: %s\n", worker, status)
	}
	return nil
}
