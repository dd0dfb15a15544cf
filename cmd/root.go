package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/getresyd/internal/booking"
	"github.com/example/getresyd/internal/config"
	"github.com/example/getresyd/internal/credcache"
	"github.com/example/getresyd/internal/resy"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "resyd",
		Short: "Books and monitors Resy reservation slots the moment they open",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				lvl = logrus.InfoLevel
			}
			logrus.SetLevel(lvl)
		},
	}

	defLevel := os.Getenv("RESYD_LOG_LEVEL")
	if defLevel == "" {
		defLevel = "warn"
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", defLevel, "log level (trace|debug|info|warn|error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newCalendarCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGateway(cfg config.Config) *resy.Client {
	return resy.New(resy.Options{
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		BaseURL:   cfg.BaseURL,
	})
}

func openCache(cfg config.Config) (*credcache.Cache, error) {
	hashKey, blockKey, err := credcache.ResolveKeys(cfg.CacheHashKey, cfg.CacheBlockKey, cfg.CachePassphrase, cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return credcache.Open(filepath.Join(cfg.CacheDir, "resyd.db"), hashKey, blockKey)
}

// stopOnInterrupt flips the run's cancellation flag on the first SIGINT
// or SIGTERM; the poller winds down at its next iteration check.
func stopOnInterrupt(rc *booking.RunContext) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		fmt.Fprintln(os.Stderr, "stopping after current check...")
		rc.Stop()
	}()
}
