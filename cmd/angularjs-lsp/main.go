package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/angularjs-lsp/internal/ajcache"
	"github.com/standardbeagle/angularjs-lsp/internal/ajconfig"
	"github.com/standardbeagle/angularjs-lsp/internal/ajindex"
	"github.com/standardbeagle/angularjs-lsp/internal/ajserver"
	"github.com/standardbeagle/angularjs-lsp/internal/proxy"
	"github.com/standardbeagle/angularjs-lsp/internal/rpc"
	"github.com/standardbeagle/angularjs-lsp/internal/version"
	"github.com/standardbeagle/angularjs-lsp/internal/workspace"
	"github.com/standardbeagle/angularjs-lsp/pkg/pathutil"
)

// loadConfigWithOverrides loads ajsconfig.json from the resolved root and
// applies CLI flag overrides, matching the config-then-flags precedence
// every other command in this binary follows.
func loadConfigWithOverrides(c *cli.Context) (ajconfig.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ajconfig.Config{}, fmt.Errorf("resolving root %q: %w", root, err)
	}

	cfg, err := ajconfig.Load(absRoot)
	if err != nil {
		return ajconfig.Config{}, err
	}
	cfg.Root = absRoot

	if inc := c.StringSlice("include"); len(inc) > 0 {
		cfg.Include = inc
	}
	if exc := c.StringSlice("exclude"); len(exc) > 0 {
		cfg.Exclude = append(cfg.Exclude, exc...)
	}
	if fb := c.String("fallback"); fb != "" {
		cfg.Fallback.Command = fb
	}
	if c.Bool("no-cache") {
		cfg.Cache = false
	}

	if err := cfg.Validate(); err != nil {
		return ajconfig.Config{}, err
	}
	return cfg, nil
}

func buildComponents(cfg ajconfig.Config) (*ajindex.Index, *workspace.Indexer, *ajcache.Cache, error) {
	idx := ajindex.New()

	var cache *ajcache.Cache
	if cfg.Cache {
		c, err := ajcache.Open(cfg.Root)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening cache: %w", err)
		}
		cache = c
	}

	indexer := workspace.NewIndexer(cfg.Root, cfg, idx, cache)
	return idx, indexer, cache, nil
}

// serveCommand runs the language server over stdio until the client
// disconnects or sends exit, mirroring the graceful-shutdown pattern the
// daemon command in this codebase's ancestry uses for SIGINT/SIGTERM.
func serveCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	idx, indexer, _, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	watcher, err := workspace.NewWatcher(indexer, 250*time.Millisecond)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	px := proxy.New(cfg.Fallback.Command)
	conn := rpc.NewConn(os.Stdin, os.Stdout)
	srv := ajserver.New(cfg.Root, cfg, idx, indexer, px, conn)
	srv.Watcher = watcher

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// indexCommand performs one full workspace scan and prints a summary,
// for CI or editor plugins that want to warm the cache ahead of time.
func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	idx, indexer, _, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := indexer.IndexAll(context.Background()); err != nil {
		return fmt.Errorf("indexing %s: %w", cfg.Root, err)
	}

	symbols := idx.AllSymbols()
	modules := idx.Modules()
	fmt.Printf("indexed %s in %s\n", cfg.Root, time.Since(start).Round(time.Millisecond))
	fmt.Printf("%d modules, %d symbols\n", len(modules), len(symbols))

	if c.Bool("verbose") {
		for _, m := range modules {
			fmt.Printf("  module %s  %s\n", m.Name, pathutil.ToRelative(m.Location.File, cfg.Root))
		}
	}
	return nil
}

func versionCommand(c *cli.Context) error {
	fmt.Println(version.FullInfo())
	return nil
}

func main() {
	app := &cli.App{
		Name:  "angularjs-lsp",
		Usage: "Language server for AngularJS 1.x controllers, services, directives and templates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root to index (defaults to the current directory)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (overrides ajsconfig.json)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (appended to ajsconfig.json)",
			},
			&cli.StringFlag{
				Name:  "fallback",
				Usage: "Command to run as the fallback language server (overrides ajsconfig.json)",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the on-disk index cache",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the language server over stdio (the default when invoked with no subcommand)",
				Action: serveCommand,
			},
			{
				Name:  "index",
				Usage: "Perform one workspace scan and print a summary",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "List every discovered module and its file",
					},
				},
				Action: indexCommand,
			},
			{
				Name:   "version",
				Usage:  "Print version information",
				Action: versionCommand,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return serveCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
