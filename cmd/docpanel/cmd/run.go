package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docpanel-ai/docpanel/internal/config"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/events"
	"github.com/docpanel-ai/docpanel/internal/service"
)

var (
	runQuestions string
	runOutput    string
	runFormat    string
	runDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Analyze a document and write the report",
	Long: `Run a complete analysis of one document against a question set and
write the compiled report. Ctrl-C stops cooperatively: the in-flight window
finishes, and the report covers everything answered so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalysis,
}

func init() {
	runCmd.Flags().StringVarP(&runQuestions, "questions", "Q", "",
		"question set file (YAML)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"report output path (default: stdout)")
	runCmd.Flags().StringVar(&runFormat, "format", "text",
		"report format (text, json)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"use the deterministic mock evaluator")
	_ = runCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(runCmd)
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	document := args[0]

	qs, err := config.LoadQuestionSet(runQuestions)
	if err != nil {
		return err
	}

	eval, err := buildEvaluator(cfg, runDryRun)
	if err != nil {
		return err
	}
	runner := buildRunner(cfg, eval)

	sess := core.NewSession(core.SessionID(uuid.New().String()), document, qs.Name)
	acc := service.NewAccumulator(qs)
	bus := events.New(256)
	defer bus.Close()

	if err := sess.Start(); err != nil {
		return err
	}

	// First signal requests a cooperative stop; a second one kills the run.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("stop requested, finishing current window")
			sess.RequestStop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := runner.Run(ctx, sess, document, qs, acc, bus); err != nil {
		return err
	}

	view := sess.View()
	partial := view.Status != core.SessionStatusCompleted
	report := service.CompileReport(view.ID, qs, acc.Snapshot(), partial)

	rendered, err := renderReport(report, runFormat)
	if err != nil {
		return err
	}

	if runOutput == "" {
		fmt.Println(rendered)
		return nil
	}
	if err := renameio.WriteFile(runOutput, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("report written", "path", runOutput, "partial", partial)
	return nil
}

func renderReport(report *core.Report, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding report: %w", err)
		}
		return string(data), nil
	case "text":
		return renderTextReport(report), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func renderTextReport(report *core.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Report for session %s\n", report.SessionID)
	fmt.Fprintf(&b, "Question set: %s\n", report.QuestionSet)
	fmt.Fprintf(&b, "Answered %d of %d questions", report.Answered, report.Total)
	if report.Partial {
		b.WriteString(" (partial)")
	}
	b.WriteString("\n")

	for _, section := range report.Sections {
		fmt.Fprintf(&b, "\n## %s\n", section.Name)
		for _, q := range section.Questions {
			fmt.Fprintf(&b, "\n%s\n", q.Text)
			if q.Answer == nil {
				b.WriteString("  (unanswered)\n")
				continue
			}
			fmt.Fprintf(&b, "  %s\n", q.Answer.Text)
			fmt.Fprintf(&b, "  pages %s, confidence %.2f", formatPages(q.Answer.Pages), q.Answer.Confidence)
			if q.Answer.MergeCount > 1 {
				fmt.Fprintf(&b, ", seen %d times", q.Answer.MergeCount)
			}
			b.WriteString("\n")
			if q.Answer.Footnote != "" {
				fmt.Fprintf(&b, "  note: %s\n", q.Answer.Footnote)
			}
		}
	}
	return b.String()
}

func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}
