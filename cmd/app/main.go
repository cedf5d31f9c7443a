package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/timberline/internal"
	"github.com/starford/timberline/internal/catalog"
	pkgconfig "github.com/starford/timberline/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.Root().String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func query(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"search":   cmd.String("search"),
		"category": cmd.String("category"),
		"species":  cmd.String("species"),
	}
	if grain := cmd.StringSlice("grain"); len(grain) > 0 {
		criteria["grainPattern"] = grain
	}
	priceRange := map[string]any{}
	if cmd.IsSet("min-price") {
		priceRange["min"] = cmd.Float("min-price")
	}
	if cmd.IsSet("max-price") {
		priceRange["max"] = cmd.Float("max-price")
	}
	if len(priceRange) > 0 {
		criteria["priceRange"] = priceRange
	}
	if cmd.IsSet("in-stock") {
		criteria["inStock"] = cmd.Bool("in-stock")
	}
	if cmd.IsSet("featured") {
		criteria["featured"] = cmd.Bool("featured")
	}

	f := catalog.ParseFilter(criteria)
	key := catalog.ParseSortKey(cmd.String("sort"))
	return internal.RunQuery(ctx, os.Stdout, f, key, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "timberline",
		Usage:  "Wood products catalog service with local fallback data and custom product storage",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the catalog tools over MCP stdio",
				Action: mcp,
			},
			{
				Name:   "query",
				Usage:  "Print a filtered, sorted catalog view as JSON",
				Action: query,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Match name, species or description"},
					&cli.StringFlag{Name: "category", Usage: "Exact category"},
					&cli.StringFlag{Name: "species", Usage: "Exact species"},
					&cli.FloatFlag{Name: "min-price", Usage: "Lowest price, inclusive"},
					&cli.FloatFlag{Name: "max-price", Usage: "Highest price, inclusive"},
					&cli.StringSliceFlag{Name: "grain", Usage: "Grain pattern tag, repeatable"},
					&cli.BoolFlag{Name: "in-stock", Usage: "Only in-stock products"},
					&cli.BoolFlag{Name: "featured", Usage: "Only featured products"},
					&cli.StringFlag{Name: "sort", Value: string(catalog.SortByName), Usage: "name, price, -price or species"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
