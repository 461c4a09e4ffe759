package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngoyal88/logwise/pkg/capture"
	"github.com/ngoyal88/logwise/pkg/config"
	"github.com/ngoyal88/logwise/pkg/logwise"
)

func newAnalyzeCmd(cfgFile *string) *cobra.Command {
	var (
		message string
		level   string
		file    string
		line    int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Capture one log event and print its recommendation",
		Long: `Capture one log event the way an application would and print the
recommendation. Non-error levels are logged without analysis.

Examples:
  logwise analyze --message "division by zero" --file app.py --line 10
  logwise analyze -m "disk almost full" -l WARNING`,
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, err := capture.ParseSeverity(level)
			if err != nil {
				return err
			}

			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			c, closeFn, err := logwise.New(cfg, logwise.WithWriter(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer closeFn()

			loc := capture.Location{File: file, Line: line}
			recommendation, err := c.Capture(cmd.Context(), message, severity, loc)
			if err != nil {
				return err
			}
			if recommendation != "" {
				fmt.Fprintln(cmd.OutOrStdout(), recommendation)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "log message")
	cmd.Flags().StringVarP(&level, "level", "l", string(capture.SeverityError), "DEBUG, INFO, WARNING, ERROR, EXCEPTION or CRITICAL")
	cmd.Flags().StringVarP(&file, "file", "f", "", "source file the event refers to")
	cmd.Flags().IntVarP(&line, "line", "n", 0, "line number in --file")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
