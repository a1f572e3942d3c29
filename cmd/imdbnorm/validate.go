package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"imdbnorm/internal/config"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := config.Validate(a.cfg)
			printIssues(a.stdout, issues)
			if err := config.Check(a.cfg); err != nil {
				log.Printf("Configuration is invalid: %v", a.cfgPath)
				return err
			}
			log.Printf("Configuration is valid: %v", a.cfgPath)
			return nil
		},
	}
}

func printIssues(w io.Writer, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}
