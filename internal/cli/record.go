package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/minutemaestro/internal/bootstrap"
	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/output"
	sessionUsecase "github.com/johnquangdev/minutemaestro/internal/usecase/session"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var language string
	var outPath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting and print its minutes",
		Long:  "Record from the microphone with a live transcript.\nType p to pause, r to resume and q (or Ctrl+C) to stop and generate the minutes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *deps.Config
			if language != "" {
				cfg.Groq.Language = language
			}
			if missing := cfg.MissingCredentials(); len(missing) > 0 {
				return fmt.Errorf("missing credentials: %s (run 'minutes doctor')", strings.Join(missing, ", "))
			}

			services, err := bootstrap.Build(&cfg, deps.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f := output.NewFormatter(cmd.OutOrStdout())
			minutes, err := runRecording(ctx, services.Controller, cmd.InOrStdin(), f)
			if err != nil {
				return err
			}
			if minutes == nil {
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout())
			f.Minutes(minutes)

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(output.MinutesMarkdown(minutes)), 0o644); err != nil {
					return fmt.Errorf("writing minutes: %w", err)
				}
				f.MinutesSaved(outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language of the minutes (default from GROQ_LANGUAGE)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Also write the minutes to this markdown file")

	return cmd
}

// runRecording drives one session from the terminal. It returns nil minutes
// when nothing was transcribed.
func runRecording(ctx context.Context, svc sessionUsecase.Service, in io.Reader, f *output.Formatter) (*entities.MeetingMinutes, error) {
	events, unsubscribe := svc.Subscribe(0)
	defer unsubscribe()

	f.Connecting()
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}

	view := svc.View()
	start := time.Now()
	if view.StartedAt != nil {
		start = *view.StartedAt
	}
	f.RecordingStarted(view.SessionID.String())

	done := make(chan struct{})
	defer close(done)
	commands := readCommands(in, done)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case command, ok := <-commands:
			if !ok {
				// stdin closed; keep recording until interrupted
				commands = nil
				continue
			}
			switch command {
			case "p", "pause":
				svc.Pause()
				if svc.Status() == entities.SessionStatusPaused {
					f.Paused()
				}
			case "r", "resume":
				svc.Resume()
				if svc.Status() == entities.SessionStatusRecording {
					f.Resumed()
				}
			case "q", "quit", "stop":
				break loop
			case "":
			default:
				f.Info(fmt.Sprintf("unknown command %q (p, r, q)", command))
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case entities.SessionEventTranscript:
				if ev.Entry != nil && ev.Entry.IsFinal {
					f.TranscriptLine(start, *ev.Entry)
				}
			case entities.SessionEventError:
				f.Error(ev.Error)
				f.Info("Session stopped. Type q to generate minutes from what was captured.")
			}
		}
	}

	svc.Disconnect()
	view = svc.View()
	f.RecordingStopped(time.Since(start), view.FinalizedCount())

	if view.Status != entities.SessionStatusCompleted || view.FinalizedCount() == 0 {
		f.Warning("No finalized transcript, skipping minutes.")
		return nil, nil
	}

	f.Summarizing()
	return svc.GenerateMinutes(context.WithoutCancel(ctx))
}

func readCommands(in io.Reader, done <-chan struct{}) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case out <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-done:
				return
			}
		}
	}()
	return out
}
