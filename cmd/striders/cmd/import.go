package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/service"

	"github.com/spf13/cobra"
)

func ImportCmd() *cobra.Command {
	var (
		racerID  string
		date     string
		distance int
		file     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import times for one racer and date",
		Long: `Reads times separated by whitespace, commas or 、 from a file (or stdin
with --file -) and writes one manual record per positive number.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read times: %w", err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			loc := a.Cfg.Location()
			if date == "" {
				date = model.LocalDate(time.Now(), loc)
			}

			result, err := a.AdminService.Import(cmd.Context(), service.ImportInput{
				RacerID:  racerID,
				Date:     date,
				Distance: model.Distance(distance),
				Text:     string(text),
				Location: loc,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (%d failed)\n", result.Success, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&racerID, "racer", "", "racer ID")
	cmd.Flags().StringVar(&date, "date", "", "record date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&distance, "distance", int(model.Distance30), "distance in meters (10, 30 or 50)")
	cmd.Flags().StringVar(&file, "file", "-", "file with times, - for stdin")
	_ = cmd.MarkFlagRequired("racer")

	return cmd
}
