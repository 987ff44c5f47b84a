// Command widget-sim replays visitor scenarios through a headless widget against a
// collector, usually the sandbox started by widget-sandbox.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/siteguard/widget-go/internal/application/simulator"
	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/pkg/config"
	"github.com/spf13/cobra"
)

type flags struct {
	api      string
	asJSON   bool
	withHTML bool
	verify   bool
	verbose  bool
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:   "widget-sim [scenario.yaml...]",
		Short: "Replay visitor scenarios through a headless widget",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f, args)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&f.api, "api", config.APIBase, "collector base URL")
	root.Flags().BoolVar(&f.asJSON, "json", false, "print results as JSON")
	root.Flags().BoolVar(&f.withHTML, "html", false, "include the rendered widget HTML")
	root.Flags().BoolVar(&f.verify, "verify", false, "fetch the recorded session from the sandbox afterwards")
	root.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log widget activity to stderr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, f flags, paths []string) error {
	logger, err := newLogger(f.verbose)
	if err != nil {
		return err
	}
	defer logger.Close()

	client := &http.Client{Timeout: config.RequestTimeout}
	runner := simulator.NewRunner(f.api, client, logger)

	for _, path := range paths {
		sc, err := simulator.Load(path)
		if err != nil {
			return err
		}
		res, err := runner.Run(ctx, sc)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		if !f.withHTML {
			res.HTML = ""
		}

		var tl *collector.Timeline
		if f.verify {
			if tl, err = fetchTimeline(ctx, client, f.api, res.State.SessionID); err != nil {
				return fmt.Errorf("%s: verify: %w", sc.Name, err)
			}
		}

		if f.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				*simulator.Result
				Recorded *collector.Timeline `json:"recorded,omitempty"`
			}{res, tl}); err != nil {
				return err
			}
			continue
		}
		printResult(out, res, tl)
	}
	return nil
}

func printResult(out io.Writer, res *simulator.Result, tl *collector.Timeline) {
	s := res.State
	fmt.Fprintf(out, "== %s (%d steps, %s)\n", res.Scenario, res.Steps, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "visitor   %s\n", s.VisitorID)
	fmt.Fprintf(out, "session   %s\n", s.SessionID)
	fmt.Fprintf(out, "page      %s\n", s.Path)
	fmt.Fprintf(out, "behavior  scroll=%d%% clicks=%d idle=%ds\n", s.Behavior.ScrollDepthMax, s.Behavior.ClickCount, s.Behavior.IdleSeconds)
	fmt.Fprintf(out, "consent   %s\n", s.Consent)
	fmt.Fprintf(out, "chat      %s\n", s.Chat)
	fmt.Fprintf(out, "proactive shown=%t bubble=%s\n", s.ProactiveShown, s.Bubble)
	for _, m := range s.Transcript {
		line := fmt.Sprintf("  %-9s %s", m.Role, m.Text)
		if m.Confidence != nil {
			line += fmt.Sprintf(" (%.0f%%)", *m.Confidence*100)
		}
		if m.Escalated {
			line += " [escalated]"
		}
		fmt.Fprintln(out, line)
	}
	if tl != nil {
		fmt.Fprintf(out, "recorded  pageviews=%d updates=%d events=%d ends=%d messages=%d\n",
			len(tl.PageViews), len(tl.PageUpdates), len(tl.Events), len(tl.SessionEnds), len(tl.Messages))
	}
	if res.HTML != "" {
		fmt.Fprintln(out, res.HTML)
	}
}

func fetchTimeline(ctx context.Context, client *http.Client, api, sessionID string) (*collector.Timeline, error) {
	target := strings.TrimRight(api, "/") + "/sandbox/sessions/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var tl collector.Timeline
	if err := json.NewDecoder(resp.Body).Decode(&tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

func newLogger(verbose bool) (*logging.ChanneledLogger, error) {
	if !verbose {
		return logging.NewNopLogger(), nil
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.Writer = os.Stderr
	cfg.JSONFormat = false
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		return nil, err
	}
	for _, ch := range []logging.Channel{logging.ChannelBehavior, logging.ChannelProactive, logging.ChannelConsent, logging.ChannelChat} {
		if err := logger.SetChannelLevel(ch, slog.LevelDebug); err != nil {
			return nil, err
		}
	}
	return logger, nil
}
