package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tucnak/climax"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/cache"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/config"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/creator"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/github"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/output"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = ""

// getVersion falls back to the module version of go install builds, then
// to "dev"
func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

func main() {
	cli := climax.New("gitignore-maintainer")
	cli.Brief = "Add .gitignore templates from github/gitignore to your projects"
	cli.Version = getVersion()

	commonFlags := []climax.Flag{
		{
			Name:     "provider",
			Short:    "p",
			Usage:    `--provider <repository|api>`,
			Help:     `Template source: the github/gitignore repository including global templates, or the gitignore API (default: repository)`,
			Variable: true,
		},
		{
			Name:     "config",
			Short:    "c",
			Usage:    `--config <file>`,
			Help:     `Configuration file (default: $XDG_CONFIG_HOME/gitignore-maintainer/config.yaml)`,
			Variable: true,
		},
		{
			Name:     "token",
			Short:    "t",
			Usage:    `--token <token>`,
			Help:     `GitHub personal access token (or set GITHUB_TOKEN env var). Without one you are asked to sign in when the rate limit is reached`,
			Variable: true,
		},
		{
			Name:     "verbose",
			Short:    "v",
			Usage:    `--verbose`,
			Help:     `Enable verbose logging for debugging (shows API calls, cache and authentication steps)`,
			Variable: false,
		},
	}

	listCmd := climax.Command{
		Name:  "list",
		Brief: "List available .gitignore templates",
		Usage: `list [--json] [--provider <provider>] [--verbose]`,
		Help:  `Lists the templates offered by the selected provider as a table, or as JSON with --json.`,
		Flags: append([]climax.Flag{
			{
				Name:     "json",
				Short:    "j",
				Usage:    `--json`,
				Help:     `Print the catalog as JSON`,
				Variable: false,
			},
		}, commonFlags...),
		Handle: handleList,
	}

	addCmd := climax.Command{
		Name:  "add",
		Brief: "Add a .gitignore template to a project folder",
		Usage: `add [<template>] [<folder>...] [--append|--overwrite] [--token <token>] [--provider <provider>]`,
		Help: `Writes the template into the .gitignore of the folder (default: current directory).
You are asked for the template when none is given, for the folder when several are given,
and whether to append or overwrite when the .gitignore already exists.`,
		Flags: append([]climax.Flag{
			{
				Name:     "append",
				Short:    "a",
				Usage:    `--append`,
				Help:     `Append to an existing .gitignore without asking`,
				Variable: false,
			},
			{
				Name:     "overwrite",
				Short:    "o",
				Usage:    `--overwrite`,
				Help:     `Overwrite an existing .gitignore without asking`,
				Variable: false,
			},
		}, commonFlags...),
		Handle: handleAdd,
	}

	cli.AddCommand(listCmd)
	cli.AddCommand(addCmd)

	cli.Run()
}

func handleList(ctx climax.Context) int {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(runCtx, ctx, newTerminalPrompter())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	templates, err := a.creator.List(runCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing templates: %v\n", err)
		return 1
	}

	result := output.BuildListResult(a.config.Provider, templates)
	if ctx.Is("json") {
		err = output.FormatJSON(result, os.Stdout, true)
		fmt.Println()
	} else {
		err = output.FormatText(result, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}

	a.printCacheStats()
	return 0
}

func handleAdd(ctx climax.Context) int {
	if ctx.Is("append") && ctx.Is("overwrite") {
		fmt.Fprintf(os.Stderr, "Error: --append and --overwrite are mutually exclusive\n")
		return 1
	}

	req, err := addRequest(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(runCtx, ctx, newTerminalPrompter())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	outcome, err := a.creator.Add(runCtx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding .gitignore: %v\n", err)
		return 1
	}
	if outcome == nil {
		return 0
	}

	fmt.Println(outcome.Message)
	if a.verbose {
		log.Info().Msgf("Wrote %s to %s", humanize.Bytes(uint64(outcome.Result.BytesWritten)),
			filepath.Join(outcome.Folder, gitignore.FileName))
	}

	a.printCacheStats()
	return 0
}

// addRequest turns the arguments of the add command into a request. The
// first argument is the template, the rest are folders.
func addRequest(ctx climax.Context) (creator.Request, error) {
	var req creator.Request

	args := ctx.Args
	if len(args) > 0 {
		req.Template = args[0]
		args = args[1:]
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	for _, arg := range args {
		folder, err := filepath.Abs(arg)
		if err != nil {
			return req, fmt.Errorf("invalid folder %q: %w", arg, err)
		}
		info, err := os.Stat(folder)
		if err != nil {
			return req, fmt.Errorf("invalid folder %q: %w", arg, err)
		}
		if !info.IsDir() {
			return req, fmt.Errorf("%s is not a directory", folder)
		}
		req.Folders = append(req.Folders, folder)
	}

	switch {
	case ctx.Is("append"):
		op := gitignore.Append
		req.Operation = &op
	case ctx.Is("overwrite"):
		op := gitignore.Overwrite
		req.Operation = &op
	}

	return req, nil
}

// app holds the components shared by the commands
type app struct {
	config  *config.Config
	cache   *cache.Cache
	session *github.Session
	creator *creator.Creator
	verbose bool
}

func newApp(runCtx context.Context, ctx climax.Context, prompter *terminalPrompter) (*app, error) {
	verbose := ctx.Is("verbose")
	if verbose {
		logging.SetupLogger(2)
		log.Info().Msg("Verbose logging enabled")
	} else {
		logging.SetupLogger(0)
	}

	configPath, _ := ctx.Get("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if provider, ok := ctx.Get("provider"); ok && provider != "" {
		cfg.Provider = provider
	}
	if token, ok := ctx.Get("token"); ok && token != "" {
		cfg.Token = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verbose && cfg.Path != "" {
		log.Info().Msgf("Loaded configuration from %s", cfg.Path)
	}

	templateCache, err := newCache(cfg)
	if err != nil {
		return nil, err
	}

	sessionConfig := &github.SessionConfig{AuthorizationOverride: cfg.Authorization}
	if cfg.Token != "" {
		sessionConfig.Credentials = github.NewStaticCredentials(cfg.Token)
	} else {
		sessionConfig.Credentials = github.NewPromptCredentials(prompter.ReadToken)
		sessionConfig.Consent = creator.Consent(prompter)
	}
	session := github.NewSession(github.NewAuthContext(), sessionConfig)

	client, err := github.NewClient(session, &github.Config{
		BaseURL:   cfg.HTTP.BaseURL,
		UserAgent: cfg.HTTP.UserAgent,
		Proxy:     cfg.HTTP.Proxy,
		Timeout:   cfg.HTTPTimeout(),
	})
	if err != nil {
		templateCache.Close()
		return nil, err
	}

	// an explicit token is used from the first request on
	if cfg.Token != "" {
		if _, err := session.TryGetAccessToken(runCtx); err != nil {
			templateCache.Close()
			return nil, fmt.Errorf("failed to use GitHub token: %w", err)
		}
	}

	var provider gitignore.Provider
	switch cfg.Provider {
	case config.ProviderAPI:
		provider = gitignore.NewAPIProvider(client, templateCache)
	default:
		provider = gitignore.NewRepositoryProvider(client, templateCache)
	}

	if verbose {
		log.Info().Msgf("Using %s provider with %s cache (expiration %s)", cfg.Provider, cfg.Cache.Backend, cfg.CacheExpiration())
	}

	return &app{
		config:  cfg,
		cache:   templateCache,
		session: session,
		creator: creator.New(&creator.Config{
			Provider: provider,
			Session:  session,
			Prompter: prompter,
		}),
		verbose: verbose,
	}, nil
}

func newCache(cfg *config.Config) (*cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		store, err := cache.NewSQLiteStore("")
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		return cache.New(store, cfg.CacheExpiration()), nil
	default:
		return cache.NewMemory(cfg.CacheExpiration()), nil
	}
}

func (a *app) printCacheStats() {
	if !a.verbose {
		return
	}

	stats, err := a.cache.Stats()
	if err != nil {
		log.Warn().Msgf("Failed to get cache stats: %v", err)
		return
	}
	log.Info().Msgf("Cache statistics: %d total, %d valid, %d expired", stats.TotalEntries, stats.ValidEntries, stats.ExpiredEntries)

	if a.session.IsAuthenticated(context.Background()) {
		log.Info().Msgf("Authenticated with GitHub (session %s)", a.session.ID)
	}
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil && a.verbose {
		log.Warn().Msgf("Failed to close cache: %v", err)
	}
}
