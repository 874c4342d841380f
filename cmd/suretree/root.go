package main

import (
	"os"

	"github.com/spf13/cobra"
)

// <global-variables>
//   <subset purpose="used for passing values between 'cobra' methods">
var w Output
var log Output
var exitCode int
var cmdError error

//   </subset>
// </global-variables>

var rootCmd = &cobra.Command{
	Use:   "suretree",
	Short: "Hash files in a sure tree and migrate hashes across snapshots",
	Long: `suretree walks a previously captured tree of filesystem metadata
("a sure tree"), hashes the files it finds, and migrates hashes between
generations of a sure tree so unchanged files are never rehashed.`,
}

func init() {
	w = &PlainOutput{Device: os.Stdout}
	log = &PlainOutput{Device: os.Stderr}
}

// Execute runs the selected subcommand and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return handleError(err.Error(), 1)
	}
	if cmdError != nil {
		return handleError(cmdError.Error(), exitCode)
	}
	return exitCode
}

func main() {
	os.Exit(Execute())
}
