package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "logwise",
		Short: "LogWise: log capture with LLM root-cause analysis",
		Long: `LogWise logs events with the source lines around them and, for
ERROR, EXCEPTION and CRITICAL events, asks a Gemini model for a probable
cause, a fix and a prevention strategy. Recommendations are cached per
(file, line, message).

Configuration is read from configs/config.yaml and LOGWISE_* environment
variables, e.g. LOGWISE_GEMINI_API_KEY.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/config.yaml)")

	root.AddCommand(newAnalyzeCmd(&cfgFile), newServeCmd(&cfgFile))
	return root
}
