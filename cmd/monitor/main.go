// Command monitor is the chain-activity monitor's process entrypoint: it
// loads configuration, builds the ingestion and reporting stacks, and then
// blocks while their supervised tasks run, until an interrupt or termination
// signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/subscan-monitor/chainmonitor/buildinfo"
	"github.com/subscan-monitor/chainmonitor/internal/config"
	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
	"github.com/subscan-monitor/chainmonitor/pkg/logging"
	"github.com/subscan-monitor/chainmonitor/pkg/metrics"
	"github.com/subscan-monitor/chainmonitor/pkg/publishing"
	"github.com/subscan-monitor/chainmonitor/pkg/reporting"
	"github.com/subscan-monitor/chainmonitor/pkg/reportservice"
	"github.com/subscan-monitor/chainmonitor/pkg/scraper"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "chainmonitor",
	Short: "chainmonitor ingests per-account chain events and publishes CSV reports",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		dirPath, err := cmd.Flags().GetString("dir")
		if err != nil {
			return err
		}
		run(os.ExpandEnv(dirPath))
		return nil
	},
}

func init() {
	rootCmd.Flags().String("dir", "config", "directory holding config.yml and the accounts file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dirPath string) {
	cfg, err := config.Load(dirPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", err)
		os.Exit(1)
	}

	logging.SetupLogger(buildinfo.Version, cfg.LogLevel, false)

	summary := buildinfo.GetSummary()
	log.Info().
		Str("git_commit", summary.GitCommit).
		Str("git_branch", summary.GitBranch).
		Str("build_date", summary.BuildDate).
		Msg("starting chainmonitor")

	if cfg.Metrics.Port != "" {
		if err := metrics.SetupInstrumentation(":"+cfg.Metrics.Port, "chainmonitor"); err != nil {
			log.Fatal().Err(err).Str("port", cfg.Metrics.Port).Msg("could not set up instrumentation")
		}
	}
	domain, err := metrics.NewDomain()
	if err != nil {
		log.Fatal().Err(err).Msg("creating metrics domain")
	}

	contexts, err := config.LoadAccounts(cfg.AccountsPath(dirPath))
	if err != nil {
		log.Fatal().Err(err).Msg("loading accounts file")
	}
	log.Info().Int("accounts", len(contexts)).Msg("loaded accounts")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("opening event store")
	}

	client := explorer.New(cfg.Explorer.APIKey, explorer.DefaultRequestTimeout)

	scrapingService, err := buildScrapingService(cfg, contexts, client, st, domain)
	if err != nil {
		log.Fatal().Err(err).Msg("building scraping service")
	}
	scrapingService.Start(ctx)

	reportService, err := buildReportService(ctx, cfg, contexts, st, domain)
	if err != nil {
		log.Fatal().Err(err).Msg("building report service")
	}
	reportService.Start(ctx)

	log.Info().Msg("chainmonitor running")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, exiting")
}

// buildScrapingService registers the fetchers named in cfg.Collection.Modules
// against the event store and the account list. Registering an unknown
// module name is a configuration error, just like registering the same
// module twice.
func buildScrapingService(
	cfg *config.Config,
	contexts []monitor.Context,
	client *explorer.Client,
	st *store.Store,
	domain *metrics.Domain,
) (*scraper.Service, error) {
	svc := scraper.NewService(log.Logger, domain)

	for _, name := range cfg.Collection.Modules {
		var f scraper.Fetcher
		switch name {
		case "transfer":
			f = scraper.NewTransferFetcher(client, st)
		case "rewards_slashes":
			f = scraper.NewRewardSlashFetcher(client, st)
		case "nominations":
			f = scraper.NewNominationFetcher(client, st)
		default:
			return nil, fmt.Errorf("unrecognized collection module %q", name)
		}
		if err := svc.Register(f); err != nil {
			return nil, err
		}
	}

	svc.SetAccounts(contexts)
	return svc, nil
}

// buildReportService registers the generators named in cfg.Report.Modules,
// each under the qualification rule its type implies, publishing through
// the single configured publisher.
func buildReportService(
	ctx context.Context,
	cfg *config.Config,
	contexts []monitor.Context,
	st *store.Store,
	domain *metrics.Domain,
) (*reportservice.Service, error) {
	pub, err := buildPublisher(ctx, cfg.Report.Publisher)
	if err != nil {
		return nil, fmt.Errorf("building publisher: %w", err)
	}

	svc := reportservice.NewService(log.Logger, pub, domain)

	for _, mod := range cfg.Report.Modules {
		gen, qualifier, err := buildGenerator(mod, contexts, st)
		if err != nil {
			return nil, fmt.Errorf("building report module %q: %w", mod.Type, err)
		}
		if err := svc.Register(gen, qualifier); err != nil {
			return nil, err
		}
	}

	return svc, nil
}

func buildGenerator(
	mod config.ReportModule,
	contexts []monitor.Context,
	st *store.Store,
) (reporting.Generator, reportservice.Qualifier, error) {
	switch mod.Type {
	case "transfers":
		var modCfg config.TransfersModuleConfig
		if err := mod.Decode(&modCfg); err != nil {
			return nil, nil, err
		}
		reportRange := config.ParseReportRange(modCfg.ReportRange)
		gen := reporting.NewTransferGenerator(st, contexts, reportRange)
		qualifier := reportservice.NewRangeQualifier(st, gen.Name(), reportRange)
		return gen, qualifier, nil

	case "rewards_slashes":
		var modCfg config.BucketedModuleConfig
		if err := mod.Decode(&modCfg); err != nil {
			return nil, nil, err
		}
		occurrence, err := config.ParseOccurrence(modCfg.Occurrence)
		if err != nil {
			return nil, nil, err
		}
		gen := reporting.NewRewardSlashGenerator(st, contexts, true)
		qualifier := reportservice.NewBucketQualifier(st, gen.Name(), store.Occurrence(occurrence))
		return gen, qualifier, nil

	case "nominations":
		var modCfg config.BucketedModuleConfig
		if err := mod.Decode(&modCfg); err != nil {
			return nil, nil, err
		}
		occurrence, err := config.ParseOccurrence(modCfg.Occurrence)
		if err != nil {
			return nil, nil, err
		}
		gen := reporting.NewNominationGenerator(st, contexts)
		qualifier := reportservice.NewBucketQualifier(st, gen.Name(), store.Occurrence(occurrence))
		return gen, qualifier, nil

	default:
		return nil, nil, fmt.Errorf("unrecognized report module type %q", mod.Type)
	}
}

func buildPublisher(ctx context.Context, cfg config.PublisherConfig) (publishing.Publisher, error) {
	switch cfg.Type {
	case "google_drive":
		return publishing.NewGCSPublisher(ctx, cfg.Config.GCPSecretPath, cfg.Config.BucketName, publishing.DefaultRequestTimeout)
	default:
		return nil, fmt.Errorf("unrecognized publisher type %q", cfg.Type)
	}
}
