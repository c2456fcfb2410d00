package cmd

import (
	"github.com/spf13/cobra"

	"mzmatch/pkg/state"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Serve the result browser over the last-produced database",
	Long: `Launch the read-only browsing interface over an existing result database
without re-running the matching. By default the database recorded by the most
recent generate run is served; --results overrides it.`,
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	dbPath, err := resolveResults(settings.StateFile)
	if err != nil {
		return err
	}
	return serve(dbPath, settings.Port)
}

// resolveResults picks the result database to operate on: the --results flag
// when given, the last-run state pointer otherwise.
func resolveResults(statePath string) (string, error) {
	if resultsFile != "" {
		return resultsFile, nil
	}
	lastRun, err := state.Load(statePath)
	if err != nil {
		return "", err
	}
	return lastRun.Database, nil
}
