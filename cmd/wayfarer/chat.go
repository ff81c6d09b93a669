package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/wayfarer"
	"github.com/aretw0/wayfarer/internal/presentation/tui"
	"github.com/aretw0/wayfarer/pkg/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Plan a trip interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		sessionID, _ := cmd.Flags().GetString("session")
		out := cmd.OutOrStdout()
		tui.PrintBanner(out)
		printer := tui.NewPrinter(out, tui.NewRenderer(os.Stdout))
		return chat(cmd.Context(), app, sessionID, cmd.InOrStdin(), printer, out)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Resume an existing session")
}

// chat reads one message per line and prints the session's events until the
// run settles. It returns on EOF, "exit" or "quit", or once the trip is complete.
func chat(ctx context.Context, app *wayfarer.App, sessionID string, in io.Reader, printer *tui.Printer, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Where would you like to go? (type 'exit' to quit)")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		}

		reply, err := app.Service.Send(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		sessionID = reply.SessionID

		status, err := follow(ctx, app, sessionID, printer)
		if err != nil {
			return err
		}
		if status == domain.StatusComplete {
			fmt.Fprintf(out, "Session %s saved. Safe travels!\n", sessionID)
			return nil
		}
	}
}

// follow prints events until the session leaves the processing state.
func follow(ctx context.Context, app *wayfarer.App, sessionID string, printer *tui.Printer) (domain.Status, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	statusCh := make(chan domain.Status, 1)
	go func() {
		poll := app.Config.Runner.PollInterval
		if poll <= 0 {
			poll = 100 * time.Millisecond
		}
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		for {
			select {
			case <-streamCtx.Done():
				return
			case <-ticker.C:
			}
			d, err := app.Service.Detail(streamCtx, sessionID)
			if err != nil || d.Status == domain.StatusProcessing {
				continue
			}
			statusCh <- d.Status
			// Let the stream flush what the run emitted last.
			time.Sleep(2 * poll)
			cancel()
			return
		}
	}()

	seq, err := app.Service.Stream(streamCtx, sessionID)
	if err != nil {
		return "", err
	}
	for ev := range seq {
		printer.Event(ev)
	}

	select {
	case status := <-statusCh:
		return status, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	// The stream ended on a terminal event before the poller saw the status.
	d, err := app.Service.Detail(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return d.Status, nil
}
