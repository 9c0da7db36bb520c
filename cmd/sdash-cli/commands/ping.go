package commands

import (
	"log/slog"
	"time"

	"sdash-backend/lib/scrapers/academia"

	"github.com/spf13/cobra"
)

var pingInterval *time.Duration

func init() {
	pingInterval = pingCmd.Flags().Duration("interval", time.Minute*5, "How often to probe the portal.")
	rootCmd.AddCommand(pingCmd)
}

// The portal sits behind an aggressive idle timeout, a periodic probe
// from the host keeps DNS and TLS caches warm and gives an early
// signal when the portal is down.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Periodically probes the portal and logs reachability.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()
		baseUrl := cfg.BaseUrl
		if baseUrl == "" {
			baseUrl = "https://academia.srmist.edu.in"
		}

		client := academia.NewPingClient(baseUrl)

		ticker := time.NewTicker(*pingInterval)
		defer ticker.Stop()

		probe := func() {
			reachable := academia.PortalReachable(ctx, client)
			if reachable {
				slog.InfoContext(ctx, "portal reachable")
			} else {
				slog.WarnContext(ctx, "portal unreachable")
			}
		}

		probe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	},
}
