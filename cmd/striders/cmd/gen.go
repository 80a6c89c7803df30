package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
)

func GenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Regenerate the templ components",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			c := exec.CommandContext(cmd.Context(), "go", "tool", "templ", "generate", "-path", "internal/ui")
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			err := c.Run()
			if err != nil {
				return fmt.Errorf("templ generate: %w", err)
			}

			fmt.Printf("[templ] done in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
