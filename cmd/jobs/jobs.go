package jobs

import (
	"fmt"
	"os"
	"time"

	"politefetch/cmd/common"
	cLog "politefetch/log"
	"politefetch/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	stateDir string
	maxAge   time.Duration
)

var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "manage saved job states",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list saved jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := build()
		if err != nil {
			return err
		}
		jobIDs, err := deps.Store.ListJobs()
		if err != nil {
			return err
		}
		for _, id := range jobIDs {
			fmt.Println(id)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "print the summary of a saved job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := build()
		if err != nil {
			return err
		}
		state, err := deps.Store.Load(args[0])
		if err != nil {
			return err
		}
		if state == nil {
			return fmt.Errorf("no saved state for job %q", args[0])
		}
		report.Render(os.Stdout, report.Build(state))
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "delete job states older than --max-age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := build()
		if err != nil {
			return err
		}
		purged, err := deps.Store.Purge(maxAge)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d job state(s)\n", purged)
		return nil
	},
}

func init() {
	JobsCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for job state files")
	purgeCmd.Flags().DurationVar(&maxAge, "max-age", 30*24*time.Hour, "delete states older than this")
	JobsCmd.AddCommand(listCmd, showCmd, purgeCmd)
}

func build() (*common.Deps, error) {
	logger, err := cLog.TomLog()
	if err != nil {
		logger = cLog.NewLogger(cLog.NewStdoutPlugin(zap.WarnLevel))
	}
	ov := common.Overrides{}
	if stateDir != "" {
		ov.StateDir = &stateDir
	}
	return common.Build(logger, ov)
}
