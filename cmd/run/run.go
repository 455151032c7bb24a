package run

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"politefetch/batch"
	"politefetch/cmd/common"
	"politefetch/collector/sqlstorage"
	"politefetch/config"
	"politefetch/export"
	cLog "politefetch/log"
	"politefetch/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	urlsFile      string
	jobID         string
	workers       int
	delaySeconds  float64
	noAnalyze     bool
	noProgress    bool
	stateDir      string
	outputDir     string
	exportFormats []string
)

var RunCmd = &cobra.Command{
	Use:   "run [urls...]",
	Short: "run a batch fetch job",
	Long:  "fetch a batch of urls with robots.txt compliance, per-domain rate limiting and resumable state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args)
	},
}

func init() {
	RunCmd.Flags().StringVarP(&urlsFile, "file", "f", "", "file with one url per line")
	RunCmd.Flags().StringVar(&jobID, "job", "", "job id (generated when empty)")
	RunCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent workers")
	RunCmd.Flags().Float64Var(&delaySeconds, "delay", 0, "minimum delay per domain in seconds")
	RunCmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "skip robots.txt analysis enrichment")
	RunCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	RunCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for job state files")
	RunCmd.Flags().StringVarP(&outputDir, "out", "o", "", "directory for exported results")
	RunCmd.Flags().StringSliceVar(&exportFormats, "export", []string{"csv", "json"}, "export formats (csv, json)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger, err := cLog.TomLog()
	if err != nil {
		logger = cLog.NewLogger(cLog.NewStdoutPlugin(zap.InfoLevel))
		zap.ReplaceGlobals(logger)
	}

	urls, err := collectURLs(args)
	if err != nil {
		return err
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

	// 中断后不再投递新任务，在途的做完并保存状态
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := deps.Runner.Run(ctx, urls, jobID)
	if err != nil {
		return err
	}

	return finish(logger, deps, state)
}

func finish(logger *zap.Logger, deps *common.Deps, state *batch.JobState) error {
	outDir := deps.Config.OutputDir
	if outputDir != "" {
		outDir = outputDir
	}
	for _, format := range exportFormats {
		switch strings.ToLower(format) {
		case "csv":
			path := filepath.Join(outDir, state.JobID+".csv")
			if err := export.ToCSV(state, path); err != nil {
				return err
			}
			logger.Info("exported results", zap.String("file", path))
		case "json":
			path := filepath.Join(outDir, state.JobID+".json")
			if err := export.ToJSON(state, path, true); err != nil {
				return err
			}
			logger.Info("exported results", zap.String("file", path))
		default:
			return fmt.Errorf("unknown export format %q", format)
		}
	}

	if err := saveToSQL(logger, state); err != nil {
		// 落库失败不影响本地结果
		logger.Error("save results to sql failed", zap.Error(err))
	}

	report.Render(os.Stdout, report.Build(state))
	return nil
}

func saveToSQL(logger *zap.Logger, state *batch.JobState) error {
	storageCfg, err := config.LoadStorageConfig()
	if err != nil || storageCfg.SqlURL == "" {
		return err
	}
	opts := []sqlstorage.Option{
		sqlstorage.WithDSN(storageCfg.SqlURL),
		sqlstorage.WithLogger(logger),
	}
	if storageCfg.Table != "" {
		opts = append(opts, sqlstorage.WithTable(storageCfg.Table))
	}
	if storageCfg.BatchCount > 0 {
		opts = append(opts, sqlstorage.WithBatchCount(storageCfg.BatchCount))
	}
	sqlStore, err := sqlstorage.NewSqlStore(opts...)
	if err != nil {
		return err
	}
	if err := sqlStore.Save(state.Results...); err != nil {
		return err
	}
	return sqlStore.Flush()
}

func collectURLs(args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if urlsFile != "" {
		f, err := os.Open(urlsFile)
		if err != nil {
			return nil, fmt.Errorf("open urls file: %w", err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read urls file: %w", err)
		}
	}
	return urls, nil
}
