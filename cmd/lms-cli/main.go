package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lms-cli",
	Short: "On-chain LMS command line client",
	Long: `Command line client for the on-chain learning management system.
Connects a wallet session, binds the LMS contract and runs reads and
transactions against a local simulated chain backend.`,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(createCourseCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(createExamCmd)
	rootCmd.AddCommand(addQuestionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(takeExamCmd)
	rootCmd.AddCommand(submissionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
