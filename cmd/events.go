package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyblock/hyblock-contracts/pkg/config"
	"github.com/hyblock/hyblock-contracts/pkg/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream ledger events from a running devnet",
	Long: `Connects to a devnet's /ws/events endpoint and prints each event as it
arrives. The connection is re-established with backoff if it drops;
sequence gaps are reported.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringP("url", "u", "ws://127.0.0.1:8080/ws/events", "Event stream URL")
	eventsCmd.Flags().StringSliceP("events", "e", nil, "Only stream these event names (e.g. BetPlaced,Payout)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	names, _ := cmd.Flags().GetStringSlice("events")

	logger, err := config.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	stream, err := websocket.New(websocket.Config{
		URL:        url,
		EventNames: names,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	err = stream.Start()
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
			return stream.Close()
		case ev, ok := <-stream.Events():
			if !ok {
				return nil
			}
			fmt.Printf("#%-6d %-12s %s\n", ev.Seq, ev.Name, string(ev.Data))
		}
	}
}
