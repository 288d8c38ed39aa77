package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"catalog-wizard/internal/catalog"
	"catalog-wizard/internal/combination"
	"catalog-wizard/internal/config"
	"catalog-wizard/internal/database"
	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
	"catalog-wizard/internal/logger"
	"catalog-wizard/internal/repository"
	"catalog-wizard/internal/server"
	"catalog-wizard/internal/service"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// parseVariant reads "Name=v1,v2" into a variant
func parseVariant(raw string) (domain.Variant, error) {
	name, values, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return domain.Variant{}, fmt.Errorf("variant %q: expected Name=value1,value2", raw)
	}
	return domain.Variant{Name: name, Values: strings.Split(values, ",")}, nil
}

// syncURL picks the remote base URL, the flag winning over configuration
func syncURL(flag, configured string) (string, error) {
	url := strings.TrimSpace(flag)
	if url == "" {
		url = strings.TrimSpace(configured)
	}
	if url == "" {
		return "", errors.New("no remote catalog URL: pass --url or set REMOTE_CATALOG_URL")
	}
	return url, nil
}

// recordingFetcher keeps the fetch error that CatalogService.Load only logs
type recordingFetcher struct {
	fetcher service.SnapshotFetcher
	err     error
}

func (f *recordingFetcher) Fetch(ctx context.Context) (*catalog.Snapshot, error) {
	snapshot, err := f.fetcher.Fetch(ctx)
	f.err = err
	return snapshot, err
}

// withStore opens the configured store for the duration of fn
func withStore(ctx context.Context, fn func(store kv.Store, zapLogger *zap.Logger) error) error {
	cfg := config.Load()
	zapLogger := logger.NewWithDefaults()
	defer zapLogger.Sync()

	redisClient, _ := server.NewRedisClient(ctx, cfg.Redis, zapLogger)
	store, err := server.OpenStore(ctx, cfg, redisClient, zapLogger)
	if err != nil {
		redisClient.Close()
		return err
	}
	defer store.Close()
	if cfg.Storage.Driver != config.StorageRedis {
		defer redisClient.Close()
	}

	return fn(store, zapLogger)
}

func combosCommand() *cli.Command {
	return &cli.Command{
		Name:      "combos",
		Usage:     "Print the SKU table generated for a set of variants",
		ArgsUsage: "Name=value1,value2 ...",
		Action: func(ctx context.Context, c *cli.Command) error {
			variants := make([]domain.Variant, 0, c.Args().Len())
			for _, raw := range c.Args().Slice() {
				v, err := parseVariant(raw)
				if err != nil {
					return err
				}
				variants = append(variants, v)
			}

			variants = combination.NormalizeVariants(variants)
			if err := combination.CheckSize(variants); err != nil {
				return err
			}

			rows := combination.Reconcile(variants, nil, combination.NewID)
			out := c.Root().Writer
			for _, row := range rows {
				fmt.Fprintln(out, row.Variant)
			}
			fmt.Fprintf(out, "%d combinations\n", len(rows))
			return nil
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "catalogctl",
		Usage: "Operate the catalog wizard storage",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := config.Load()
					zapLogger := logger.NewWithDefaults()
					defer zapLogger.Sync()

					dbService, err := database.New(cfg.Database)
					if err != nil {
						return err
					}
					defer dbService.Close()

					if err := database.RunMigrations(dbService.DB(), zapLogger); err != nil {
						return err
					}
					return database.GetMigrationStatus(dbService.DB())
				},
			},
			{
				Name:  "sync",
				Usage: "Merge the published products.json into local storage",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "remote base URL, defaults to REMOTE_CATALOG_URL"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := config.Load()
					url, err := syncURL(c.String("url"), cfg.Remote.CatalogURL)
					if err != nil {
						return err
					}

					return withStore(ctx, func(store kv.Store, zapLogger *zap.Logger) error {
						remote := &recordingFetcher{fetcher: catalog.NewRemoteClient(url, nil, cfg.Remote.Timeout)}
						svc := service.NewCatalogService(repository.NewCatalogRepository(store), remote, zapLogger)

						snapshot, err := svc.Load(ctx)
						if err != nil {
							return err
						}
						if remote.err != nil {
							return fmt.Errorf("sync from %s: %w", url, remote.err)
						}
						fmt.Fprintf(c.Root().Writer, "%d products, %d categories\n", len(snapshot.Products), len(snapshot.Categories))
						return nil
					})
				},
			},
			{
				Name:      "add-category",
				Usage:     "Add a category to local storage",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := strings.Join(c.Args().Slice(), " ")
					return withStore(ctx, func(store kv.Store, zapLogger *zap.Logger) error {
						svc := service.NewCatalogService(repository.NewCatalogRepository(store), nil, zapLogger)
						category, err := svc.AddCategory(ctx, name)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.Root().Writer, category.ID)
						return nil
					})
				},
			},
			{
				Name:      "clear-draft",
				Usage:     "Remove every stored field of a draft",
				ArgsUsage: "DRAFT_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("draft id is required")
					}
					return withStore(ctx, func(store kv.Store, zapLogger *zap.Logger) error {
						return repository.NewDraftRepository(store).ClearDraft(ctx, id)
					})
				},
			},
			combosCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
