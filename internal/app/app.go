// Package app wires configuration, logging and the pipeline components into
// the viralwarn command line.
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"viralwarn/internal/config"
	"viralwarn/internal/discovery"
	"viralwarn/internal/report"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

// Run executes the command line with os.Args.
func Run() error {
	return NewRootCommand().Execute()
}

type rootOptions struct {
	configPath string
	logFormat  string
	logLevel   string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "viralwarn",
		Short: "Early warning for suspicious viral content",
		Long: `viralwarn polls news feeds, scores every item for misinformation risk and
surfaces high-risk items through a live dashboard and a JSON API.

Examples:
  viralwarn serve --config viralwarn.yaml
  viralwarn analyze "BREAKING: shocking miracle cure"
  viralwarn fetch --top 10
  viralwarn report --out alerts.docx`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCommand(opts),
		newAnalyzeCommand(opts),
		newFetchCommand(opts),
		newReportCommand(opts),
	)
	return root
}

// setup loads config and builds the service; logs go to stderr.
func (o *rootOptions) setup(cmd *cobra.Command, override func(*config.Config)) (*Service, error) {
	logger, err := newLogger(o.logFormat, o.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
	}
	return NewService(cfg, logger)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background poller with the HTTP API and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.setup(cmd, func(c *config.Config) {
				if listen != "" {
					c.Listen = listen
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, svc)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// serve runs the poller and the HTTP server until ctx is cancelled or one of
// them fails.
func serve(ctx context.Context, svc *Service) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Poller.Run(ctx) })
	g.Go(func() error { return svc.API().ListenAndServe(ctx, svc.Config.Listen) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		title   string
		rawURL  string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Score one piece of text (read from stdin when no argument is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Enter the text to analyze. Submit with a blank line.")
				var err error
				if text, err = readMultiline(bufio.NewReader(cmd.InOrStdin())); err != nil {
					return err
				}
			}
			if ok, reason := validateText(text); !ok {
				return fmt.Errorf("invalid input: %s", reason)
			}

			svc, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			item := discovery.ContentItem{ID: rawURL, Title: title, Text: text, URL: rawURL, Source: "cli", FetchedAt: time.Now().UTC()}
			res := analysis{
				Assessment: svc.Aggregator.Assess(ctx, item),
				Location:   svc.Locator.Locate(ctx, rawURL, title+" "+text),
			}
			res.RiskLevel = scoring.RiskLevel(res.RiskScore)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printAnalysis(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "headline of the text")
	cmd.Flags().StringVar(&rawURL, "url", "", "where the text was published")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the assessment as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall time limit")
	return cmd
}

type analysis struct {
	scoring.Assessment
	RiskLevel string `json:"risk_level"`
	Location  string `json:"geolocation"`
}

func printAnalysis(w io.Writer, a analysis) {
	fmt.Fprintf(w, "Risk: %.2f (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(w, "Location: %s\n", a.Location)
	c := a.Components
	fmt.Fprintf(w, "  fake news:          %.2f\n", c.FakeNews)
	fmt.Fprintf(w, "  sensational:        %.2f\n", c.Sensational)
	fmt.Fprintf(w, "  contradiction:      %.2f\n", c.Contradiction)
	fmt.Fprintf(w, "  source credibility: %.2f\n", c.SourceCredibility)
	fmt.Fprintf(w, "  virality:           %.2f\n", c.Virality)
	if len(a.Claims) > 0 {
		fmt.Fprintln(w, "Claims:")
		for i, cl := range a.Claims {
			fmt.Fprintf(w, "  - %s\n", cl)
			if i < len(a.Evidence) && a.Evidence[i] != "" {
				fmt.Fprintf(w, "    reference: %s\n", a.Evidence[i])
			}
		}
	}
	fmt.Fprintf(w, "Reasoning: %s\n", a.Reasoning)
	if a.Fallback {
		fmt.Fprintln(w, "(analysis failed, neutral fallback score)")
	}
}

func newFetchCommand(opts *rootOptions) *cobra.Command {
	var (
		top    int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one fetch and score cycle and print the riskiest items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}
			svc.Poller.Cycle(cmd.Context())

			events := svc.Store.Recent(svc.Store.Capacity())
			sort.SliceStable(events, func(i, j int) bool { return events[i].RiskScore > events[j].RiskScore })
			if top > 0 && len(events) > top {
				events = events[:top]
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			printEvents(cmd.OutOrStdout(), events, svc.Config.RiskThreshold)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "number of items to print (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}

func printEvents(w io.Writer, events []store.Event, threshold float64) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No items fetched.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RISK\tLEVEL\tLOCATION\tSOURCE\tTITLE")
	for _, e := range events {
		mark := ""
		if e.RiskScore >= threshold {
			mark = " !"
		}
		fmt.Fprintf(tw, "%.2f%s\t%s\t%s\t%s\t%s\n", e.RiskScore, mark, scoring.RiskLevel(e.RiskScore), e.Location, e.Source, truncate(e.Title, 90))
	}
	_ = tw.Flush()
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run one fetch and score cycle and write the alerts to a .docx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}
			svc.Poller.Cycle(cmd.Context())

			events := svc.Store.Recent(svc.Store.Capacity())
			if err := report.WriteAlerts(out, events, svc.Config.RiskThreshold, time.Now()); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d alerts of %d items)\n",
				out, len(report.Alerts(events, svc.Config.RiskThreshold)), len(events))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "viralwarn-alerts.docx", "output file")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
