package cmd

import (
	"fmt"

	"politefetch/cmd/jobs"
	"politefetch/cmd/resume"
	"politefetch/cmd/run"
	"politefetch/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Long:  "print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}

func Execute() error {
	var rootCmd = &cobra.Command{Use: "politefetch"}
	rootCmd.AddCommand(run.RunCmd, resume.ResumeCmd, jobs.JobsCmd, versionCmd)
	return rootCmd.Execute()
}
