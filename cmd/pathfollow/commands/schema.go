package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pathfollow/internal/follow"
)

const stdinPath = "-"

func newSchemaCommand() *cobra.Command {
	var validatePath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of log reports, or validate a report against it",
		Example: `  pathfollow schema > report-schema.json
  pathfollow log -f json main.go | pathfollow schema --validate -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validatePath == "" {
				_, err := cmd.OutOrStdout().Write(follow.ReportSchema)

				return err
			}

			return validateReport(cmd, validatePath)
		},
	}

	cmd.Flags().StringVar(&validatePath, "validate", "", "validate a JSON report file (- for stdin)")

	return cmd
}

func validateReport(cmd *cobra.Command, path string) error {
	var (
		data []byte
		err  error
	)

	if path == stdinPath {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	err = follow.ValidateReportJSON(data)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "report is valid (%s)\n", path)

	return nil
}
