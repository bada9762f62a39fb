package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/etm-api/app/cfg"
	"github.com/lysyi3m/etm-api/app/client"
	"github.com/lysyi3m/etm-api/app/commands"
	"github.com/lysyi3m/etm-api/app/journal"
)

const appName = "ETM API Utility"

func main() {
	os.Exit(run())
}

func run() int {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if config == nil {
		// Help was shown
		return 0
	}

	if config.ShowVersion {
		fmt.Printf("%s, version %s\n", appName, config.Version)
		return 0
	}

	closeLog, err := cfg.SetupLogger(config.LogFile, config.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, config); err != nil {
		slog.Error("Command failed", "command", config.Command, "error", err)
		fmt.Fprintf(os.Stderr, "%s has terminated due to an error.\n", appName)
		return 1
	}
	return 0
}

func execute(ctx context.Context, config *cfg.Cfg) error {
	slog.Info("Starting "+appName, "version", config.Version, "command", config.Command, "url", config.URL, "test", config.Test)

	var recorder journal.Recorder
	if config.Journal != "" {
		db, err := journal.Open(config.Journal)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := journal.NewMutationRepository(db)
		slog.Info("Journaling mutations", "path", config.Journal, "run_id", repo.RunID())
		recorder = repo
	}

	registry := client.NewRegistry(client.Options{
		Insecure:  config.Insecure,
		UserAgent: appName + "/" + config.Version,
	})
	defer registry.Close(context.WithoutCancel(ctx))

	c, err := registry.Get(ctx, config.URL, config.Username, config.Password)
	if err != nil {
		return fmt.Errorf("failed to log in to '%s': %w", config.URL, err)
	}
	if config.ConfigContext != "" {
		c.SetConfigContext(config.ConfigContext)
	}

	projectAreas := config.ProjectAreas
	if len(projectAreas) == 0 {
		projectAreas = c.ProjectAreaAliases()
	}
	if len(projectAreas) == 0 {
		return fmt.Errorf("no project areas found on '%s'", config.URL)
	}

	var out io.Writer = os.Stdout
	if config.ResourcesFile != "" {
		f, err := os.Create(config.ResourcesFile)
		if err != nil {
			return fmt.Errorf("failed to create resources file: %w", err)
		}
		defer f.Close()
		out = f
	}

	env := commands.NewEnv(c, recorder, out, os.Stdout, commands.Options{
		ProjectAreas:      projectAreas,
		QueryString:       config.QueryString,
		ResourceTypes:     config.ResourceTypes,
		ResourceTypesSet:  config.ResourceTypesSet,
		ResourceIDs:       config.ResourceIDs,
		RemoteScriptTypes: config.RemoteScriptTypes,
		AdapterID:         config.AdapterID,
		CreationDate:      config.CreationDate,
		ExecutionStates:   config.ExecutionStates,
		ExecutionProgress: config.ExecutionProgress,
		ResultStates:      config.ResultStates,
		Count:             config.Count,
		Test:              config.Test,
		Verbose:           config.Verbose,
		IgnoreReadErrors:  config.IgnoreReadErrors,
	})

	cmd, err := commands.New(config.Command, env)
	if err != nil {
		return err
	}

	cmd.Start()
	if err := cmd.Execute(ctx); err != nil {
		return fmt.Errorf("command '%s' failed: %w", cmd.GetName(), err)
	}

	slog.Info("Command completed", "command", cmd.GetName(), "duration", cmd.GetDuration())
	if config.Verbose {
		fmt.Printf("%s completed command '%s' in %s.\n", appName, cmd.GetName(), cmd.GetDuration())
	}
	return nil
}
