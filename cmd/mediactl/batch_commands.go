package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/operation"
)

func readBatch(path string) ([]operation.Request, error) {
	f, err := os.Open(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer func() { _ = f.Close() }()
	return operation.DecodeBatch(f)
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan FILE.toml",
		Short: "Print the ffmpeg command for each operation without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := readBatch(args[0])
			if err != nil {
				return err
			}
			processor, _, err := ctx.processor(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, req := range reqs {
				planned, err := processor.Plan(req)
				if err != nil {
					return fmt.Errorf("operation %d (%s): %w", i+1, req.Kind(), err)
				}
				if _, err := fmt.Fprintf(out, "# %d %s\n%s\n", i+1, req.Kind(), planned.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type runView struct {
	Index     int           `json:"index"`
	Kind      string        `json:"kind"`
	Output    string        `json:"output,omitempty"`
	SizeBytes int64         `json:"size_bytes,omitempty"`
	Error     string        `json:"error,omitempty"`
	Result    *media.Result `json:"result,omitempty"`
}

func (v runView) ok() bool {
	return v.Result != nil && v.Result.IsSuccess
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var failFast bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run FILE.toml",
		Short: "Run every operation in a batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := readBatch(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				cfg.CommandTimeout = timeout
			}
			processor, logger, err := ctx.processor(cmd)
			if err != nil {
				return err
			}

			views := make([]runView, 0, len(reqs))
			failed := 0
			for i, req := range reqs {
				v := runView{Index: i + 1, Kind: string(req.Kind())}
				if planned, err := processor.Plan(req); err == nil {
					v.Output = planned.Output()
				}

				res, err := processor.Execute(cmd.Context(), req)
				switch {
				case err != nil:
					v.Error = err.Error()
				case res.IsSuccess:
					v.Result = &res
					if info, statErr := os.Stat(v.Output); statErr == nil {
						v.SizeBytes = info.Size()
					}
				default:
					v.Result = &res
					v.Error = res.ErrorMessage
				}
				views = append(views, v)

				if !v.ok() {
					failed++
					logger.Warn("operation failed",
						slog.Int("index", v.Index),
						slog.String("kind", v.Kind),
						slog.String("error", v.Error),
					)
					if failFast || cmd.Context().Err() != nil {
						break
					}
				}
			}

			if asJSON {
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderRuns(views, shouldColorize(cmd.OutOrStdout()))); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d operations failed", failed, len(reqs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed operation")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-command timeout (overrides COMMAND_TIMEOUT, 0 disables)")
	return cmd
}

func renderRuns(views []runView, colorize bool) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		outcome, duration, size := "invalid", "-", "-"
		if v.Result != nil {
			outcome = v.Result.Outcome
			duration = v.Result.Duration.Round(time.Millisecond).String()
		}
		if v.ok() {
			outcome = paint(outcome, colorize, text.FgGreen)
			if v.SizeBytes > 0 {
				size = humanize.Bytes(uint64(v.SizeBytes))
			}
		} else {
			outcome = paint(outcome, colorize, text.FgRed)
		}
		rows = append(rows, []string{strconv.Itoa(v.Index), v.Kind, outcome, duration, size, v.Output, v.Error})
	}
	return renderTable(
		[]string{"#", "Kind", "Outcome", "Duration", "Size", "Output", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}
