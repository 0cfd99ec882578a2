package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesprial/go-reddit-stream/pkg/chain"
	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
)

// newInfoCommand constructs the `info` command.
func newInfoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info FULLNAME...",
		Short: "Look up things by fullname (t3_abc, t1_xyz)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			retries, _ := cmd.Flags().GetInt("retries")

			client, err := a.client()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			it := client.InfoIterator(cmd.Context(), args)
			failures := 0
			for {
				thing, err := it.Next()
				if errors.Is(err, chain.Done) {
					return nil
				}
				if err != nil {
					var cfgErr *pkgerrs.ConfigError
					if errors.As(err, &cfgErr) || cmd.Context().Err() != nil {
						return err
					}
					failures++
					if failures > retries {
						return fmt.Errorf("lookup failed after %d attempts: %w", failures, err)
					}
					a.logger.Warn("lookup failed, retrying", "attempt", failures, "error", err)
					continue
				}
				failures = 0
				if err := enc.Encode(thing); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().Int("retries", 3, "Retries per failed batch")
	return cmd
}
