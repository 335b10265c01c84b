// Command folio runs the site server and its operator tasks.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/folio-site/folio"
	"github.com/folio-site/folio/views"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	staticDir string
	pretty    bool
)

var rootCmd = &cobra.Command{
	Use:           "folio",
	Short:         "Personal site backed by a page/database workspace",
	Long:          "folio serves a home page, blog and portfolio whose records live in a remote workspace,\nand mirrors expiring workspace images into durable storage.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&staticDir, "static", "public", "Directory served under /public")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Human-readable console logs")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the folio version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "folio %s\n", version)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(lvl).With().Timestamp().Logger()
}

// newApp loads configuration from the environment and builds an initialized App.
func newApp() (*folio.App, error) {
	cfg, err := folio.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)
	log.Info().
		Str("site", cfg.URL).
		Bool("blog", cfg.NotionDatabaseID != "").
		Bool("portfolio", cfg.NotionPortfolioDatabaseID != "").
		Str("blob", cfg.BlobDriver).
		Str("manifest", cfg.AssetCachePath).
		Msg("configuration loaded")

	site := views.Site{Name: cfg.Name, URL: cfg.URL, Description: cfg.Description}
	app := folio.New(cfg, views.Default(site),
		folio.WithLogger(log),
		folio.WithStaticDir(staticDir),
	)
	if err := app.Init(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}
