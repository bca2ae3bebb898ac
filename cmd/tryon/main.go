package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-tryon-cartflow/internal/client"
	"github.com/imrishuroy/go-tryon-cartflow/internal/config"
	"github.com/imrishuroy/go-tryon-cartflow/internal/logging"
	"github.com/imrishuroy/go-tryon-cartflow/internal/session"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// CLI flags
var (
	apiFlag     string
	userFlag    string
	pollFlag    time.Duration
	timeoutFlag time.Duration
	verboseFlag bool
)

// rootCmd is the main Cobra command for the try-on CLI.
var rootCmd = &cobra.Command{
	Use:   "tryon",
	Short: "Virtual try-on and cart client",
	Long: `tryon drives the try-on and cart API as one shopper. Every command runs
in a fresh session; use "run" to execute a script of commands in a single
session so the current try-on and the cart carry over between steps.

Examples:
  tryon upload ./me.jpg
  tryon products --category shirts
  tryon process ./me.jpg 1
  tryon cart add 1 M
  tryon cart add 1 M 2 --name "Classic Tee" --price 19.99
  tryon cart list
  tryon run ./session.txt`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var cfg config.Config

func init() {
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "API base URL (default $API_BASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Shopper id sent as X-User-Id (default $USER_ID)")
	rootCmd.PersistentFlags().DurationVar(&pollFlag, "poll", 0, "Render status poll interval (default $POLL_INTERVAL)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Overall command timeout")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log every state change")

	rootCmd.AddCommand(uploadCmd, processCmd, historyCmd, productsCmd, cartCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	level := cfg.LogLevel
	if verboseFlag {
		level = "debug"
	}
	logging.Init(level, true)

	if apiFlag != "" {
		cfg.APIBaseURL = apiFlag
	}
	if userFlag != "" {
		cfg.UserID = userFlag
	}
	if pollFlag > 0 {
		cfg.PollInterval = pollFlag
	}
	if cfg.UserID == "" {
		log.Fatal().Msg("a user id is required: pass --user or set USER_ID")
	}
	return nil
}

// newShop builds a session over the HTTP API and logs state changes.
func newShop() *session.Shop {
	shop := session.NewShop(client.NewHTTPTransport(cfg.APIBaseURL, cfg.UserID, cfg.PollInterval))
	shop.TryOn.Subscribe(func(s tryon.State) {
		cur, _ := s.Current()
		log.Debug().Str("tryOnId", cur.ID).Str("status", string(cur.Status)).Bool("loading", s.Loading()).Str("error", s.Err()).Msg("Try-on state")
	})
	return shop
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeoutFlag)
}
