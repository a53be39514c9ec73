package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/civic-certificate/internal/cli"
	"github.com/fpang/civic-certificate/internal/config"
	"github.com/fpang/civic-certificate/internal/logging"
	"github.com/fpang/civic-certificate/internal/region"
)

var matchCmd = &cobra.Command{
	Use:   "match <region name>",
	Short: "Show which decorative emblem a region name resolves to",
	Long: `Runs the region matcher (exact, then substring, then word overlap) against
a region name as returned by the geocoder and prints the winning catalog entry.

Examples:
  civic-certificate match Punjab
  civic-certificate match "Delhi, India"
  civic-certificate match kashmir jammu`,
	Args: cobra.MinimumNArgs(1),
	Run:  runMatch,
}

func runMatch(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	catalog, err := loadCatalog(cfg.Regions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load region catalog")
	}

	name := strings.Join(args, " ")
	res := catalog.Match(name)
	cli.PrintMatch(os.Stdout, name, res)
	if res.Pass == region.PassNone {
		if e, ok := catalog.Suggest(name); ok {
			fmt.Printf("Did you mean %q?\n", e.Name)
		}
	}
}
