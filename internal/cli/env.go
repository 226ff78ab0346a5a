package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// EnvResult is the JSON payload of the env command.
type EnvResult struct {
	EnvVars []string `json:"env_vars"`
}

// NewEnvCommand creates the env command.
func NewEnvCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env [schema-dir]",
		Short: "List environment variables the schema's clients need",
		Long: `Compile a schema and list every env.NAME referenced by client
options, sorted and without duplicates.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			r, err := compileSchema(rootOpts, formatter, rootOpts.schemaDir(args))
			if err != nil {
				return err
			}

			vars := r.RequiredEnvVars()
			if vars == nil {
				vars = []string{}
			}
			if formatter.Format == "json" {
				return formatter.Success(EnvResult{EnvVars: vars})
			}
			for _, v := range vars {
				fmt.Fprintln(formatter.Writer, v)
			}
			return nil
		},
	}
}
