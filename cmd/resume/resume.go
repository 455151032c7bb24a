package resume

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"politefetch/batch"
	"politefetch/cmd/common"
	"politefetch/export"
	cLog "politefetch/log"
	"politefetch/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	workers      int
	delaySeconds float64
	noAnalyze    bool
	noProgress   bool
	stateDir     string
	outputDir    string
)

var ResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "resume an interrupted batch job",
	Long:  "load a saved job state and process only the remaining urls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resumeBatch(cmd, args[0])
	},
}

func init() {
	ResumeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent workers")
	ResumeCmd.Flags().Float64Var(&delaySeconds, "delay", 0, "minimum delay per domain in seconds")
	ResumeCmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "skip robots.txt analysis enrichment")
	ResumeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	ResumeCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for job state files")
	ResumeCmd.Flags().StringVarP(&outputDir, "out", "o", "", "directory for exported results")
}

func resumeBatch(cmd *cobra.Command, jobID string) error {
	logger, err := cLog.TomLog()
	if err != nil {
		logger = cLog.NewLogger(cLog.NewStdoutPlugin(zap.InfoLevel))
		zap.ReplaceGlobals(logger)
	}

	ov := common.Overrides{}
	if workers > 0 {
		ov.Workers = &workers
	}
	if delaySeconds > 0 {
		ov.DelaySeconds = &delaySeconds
	}
	if noAnalyze {
		analyze := false
		ov.AnalyzeRobots = &analyze
	}
	if noProgress {
		progress := false
		ov.ShowProgress = &progress
	}
	if stateDir != "" {
		ov.StateDir = &stateDir
	}
	deps, err := common.Build(logger, ov)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := deps.Runner.Resume(ctx, jobID)
	if err != nil {
		if errors.Is(err, batch.ErrJobNotFound) {
			logger.Error("job not found", zap.String("job_id", jobID))
		}
		return err
	}

	outDir := deps.Config.OutputDir
	if outputDir != "" {
		outDir = outputDir
	}
	if err := export.ToJSON(state, filepath.Join(outDir, state.JobID+".json"), true); err != nil {
		return err
	}

	report.Render(os.Stdout, report.Build(state))
	return nil
}
