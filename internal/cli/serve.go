package cli

import (
	"github.com/spf13/cobra"
)

func newServeCommand(s streams, o *rootOptions) *cobra.Command {
	var autoYes bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a headless editor session over JSON lines",
		Long: `Serve reads one JSON request per line from stdin and writes one JSON response
per line to stdout. An operation that would discard unsaved changes first
writes a confirm event and waits for the next input line to answer it with
{"decision":"proceed"} or {"decision":"cancel"}. Logs go to stderr.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			a.StartHealthCheckServer()
			return a.Serve(a.Context(), s.in, s.out, autoYes)
		},
	}
	cmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Proceed with every operation without asking.")
	return cmd
}
