package main

import (
	"context"
	"fmt"
	"io"

	"bookseed/internal/config"
	"bookseed/internal/logging"
	"bookseed/internal/seeder"
	"bookseed/internal/store"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// opener connects to the configured target. The returned func releases it.
type opener func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (seeder.Repository, func(), error)

type app struct {
	cfg    config.Config
	plan   seeder.Plan
	logger zerolog.Logger
	out    io.Writer
	errOut io.Writer
	open   opener

	// flags
	target   string
	planFile string
	verbose  bool
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		logger: zerolog.New(errOut).With().Timestamp().Str("app", logging.App).Logger(),
		out:    out,
		errOut: errOut,
		open:   openRepository,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bookseed",
		Short: "Seed the book database with its admin user and initial books",
		Long: `bookseed creates the administrative user and inserts the initial book
documents into the application database.

It performs no existence checks: running it twice inserts the books twice,
and an already existing admin user fails or succeeds as the database decides.

Configuration (environment, .env, .env.local):
  SEED_TARGET   mongo | postgres (default mongo)
  MONGO_URI     MongoDB connection string
  DB_DSN        PostgreSQL connection string
  SEED_TIMEOUT  overall timeout (default 30s)
  SEED_PLAN     seed plan YAML file (default: built-in plan)
  LOG_LEVEL     trace | debug | info | warn | error | disabled
  LOG_FORMAT    console | json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.target, "target", "t", "",
		"Database target: mongo or postgres (overrides SEED_TARGET)")
	root.PersistentFlags().StringVarP(&a.planFile, "plan", "p", "",
		"Path to a seed plan YAML file (overrides SEED_PLAN)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newPlanCmd(a))
	return root
}

// setup resolves configuration, logger and plan. Flags win over the environment.
func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.target != "" {
		cfg.Target = a.target
	}
	if a.planFile != "" {
		cfg.PlanFile = a.planFile
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	plan, err := seeder.LoadPlan(cfg.PlanFile)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.plan = plan
	return nil
}

func (a *app) connect(ctx context.Context) (*seeder.Service, func(), error) {
	a.logger.Info().
		Str("target", a.cfg.Target).
		Str("uri", a.cfg.ConnectionString()).
		Msg("connecting")

	repo, release, err := a.open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", a.cfg.Target, err)
	}
	a.logger.Debug().Msg("database connection OK")
	return seeder.NewService(repo, a.plan, a.logger), release, nil
}

func openRepository(ctx context.Context, cfg config.Config, logger zerolog.Logger) (seeder.Repository, func(), error) {
	switch cfg.Target {
	case config.TargetPostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(pool, logger)
		return s, s.Close, nil
	default:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewMongoStore(client)
		return s, func() { _ = s.Close(context.Background()) }, nil
	}
}
