// Package export implements the attendance CSV export command.
package export

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/export"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's attendance list as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionKey == "" {
				return errors.Newf("a session key is required, pass --session").
					Component("export").
					Category(errors.CategoryValidation).
					Build()
			}
			return runExport(settings, sessionKey)
		},
	}

	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "Session key to export (required)")
	cmd.Flags().StringVar(&settings.Export.Path, "out", viper.GetString("export.path"), "Directory for exported CSV files")

	// session is per-invocation and stays unbound.
	if err := viper.BindPFlag("export.path", cmd.Flags().Lookup("out")); err != nil {
		fmt.Printf("error binding flag out: %v\n", err)
	}

	return cmd
}

func runExport(settings *conf.Settings, sessionKey string) error {
	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in settings").
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	path, err := export.SessionCSV(&settings.Export, store, sessionKey)
	if err != nil {
		return err
	}
	fmt.Printf("Attendance list written to %s\n", path)
	return nil
}
