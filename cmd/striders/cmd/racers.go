package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/speedystriders/tracker/internal/app"
	"github.com/speedystriders/tracker/internal/model"

	"github.com/spf13/cobra"
)

func RacersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "racers",
		Short: "Racer commands",
	}

	cmd.AddCommand(racersListCmd())
	return cmd
}

func racersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every racer, private ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			racers, err := a.AdminService.Racers(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPUBLIC\tGATED\tCREATED")
			for _, r := range racers {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n",
					r.ID, r.Name, r.IsPublic, r.Gated(),
					model.TimeOf(r.CreatedAt).In(a.Cfg.Location()).Format(time.DateTime),
				)
			}
			return tw.Flush()
		},
	}
}

func openApp() (*app.App, error) {
	cfg := loadConfig()
	return app.New(cfg)
}

func closeApp(a *app.App) {
	err := a.Close()
	if err != nil {
		slog.Error("failed to close app", "error", err)
	}
}
