package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	movies "github.com/cloudxsgmbh/dynamodb-movies-go"
	"github.com/cloudxsgmbh/dynamodb-movies-go/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "movies <region>",
		Short: "Interactive movie catalog backed by DynamoDB",
		Long: `movies manages a catalog of movie records stored in a DynamoDB table.

On start it creates the catalog table and loads the sample data file if the
table does not exist yet, then reads commands from standard input until
'exit'. Configuration is read from MOVIES_* environment variables.`,
		Args:         regionArg,
		SilenceUsage: true,
		RunE:         run,
	}
}

func regionArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("incorrect number of arguments: use '%s [desired region]' and try again", cmd.Name())
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func run(cmd *cobra.Command, args []string) error {
	region := args[0]
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := movies.NewZapLogger(logger)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	store, err := movies.NewDynamoStore(movies.StoreParams{
		Client:      client,
		Logger:      log,
		WaitTimeout: cfg.TableWait,
		WaitDelay:   cfg.TableWaitPoll,
	})
	if err != nil {
		return err
	}

	created, err := movies.EnsureCatalog(ctx, store, movies.CatalogOptions{
		Table:      cfg.Table,
		Throughput: movies.Throughput{Read: cfg.ReadCapacity, Write: cfg.WriteCapacity},
		DataFile:   cfg.DataFile,
		Logger:     log,
	})
	switch {
	case err != nil && !created:
		return fmt.Errorf("prepare catalog: %w", err)
	case err != nil:
		// The table exists; only the sample data is missing.
		logger.Warn("Catalog created without sample data", zap.Error(err))
		fmt.Fprintf(out, "Table %s created, sample data not loaded: %v\n", cfg.Table, err)
	case created:
		fmt.Fprintf(out, "Table %s created\n", cfg.Table)
	default:
		fmt.Fprintf(out, "Table %s already exists\n", cfg.Table)
	}

	d, err := movies.NewDispatcher(movies.DispatcherParams{
		Store:         store,
		Table:         cfg.Table,
		Logger:        log,
		CaseSensitive: cfg.CaseSensitive,
		IgnoreUnknown: cfg.IgnoreUnknown,
	})
	if err != nil {
		return err
	}
	return runLoop(ctx, d, cmd.InOrStdin(), out, logger)
}
