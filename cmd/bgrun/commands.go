package main

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/bgrun"
	"github.com/loykin/bgrun/pkg/client"
)

// command binds handlers to a lazily constructed manager so that purely
// remote invocations never touch the local base dir.
type command struct{}

// newManager builds a local manager from flags. An empty config path uses
// defaults (per-user base dir).
func (c command) newManager(configPath string) (*bgrun.Manager, error) {
	fc, err := bgrun.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	m, err := bgrun.NewFromConfig(fc)
	if err != nil {
		return nil, err
	}
	m.SetLogger(fc.Log.NewLogger())
	return m, nil
}

func (c command) newAPIClient(apiURL string, timeout time.Duration) *client.Client {
	return client.New(client.Config{BaseURL: apiURL, Timeout: timeout})
}

// Start launches a detached process and prints its record.
func (c command) Start(ctx context.Context, f StartFlags) error {
	scope, err := resolveScope(f.Scope)
	if err != nil {
		return err
	}
	spec := bgrun.Spec{Name: f.Name, Command: f.Cmd, WorkDir: f.WorkDir, Scope: scope, Env: f.EnvKVs}

	if f.APIUrl != "" {
		api := c.newAPIClient(f.APIUrl, f.APITimeout)
		rec, err := api.Start(ctx, client.StartRequest{
			Name: spec.Name, Command: spec.Command, WorkDir: spec.WorkDir, Scope: spec.Scope, Env: spec.Env,
		})
		if err != nil {
			return err
		}
		printJSON(rec)
		return nil
	}

	mgr, err := c.newManager(f.ConfigPath)
	if err != nil {
		return err
	}
	rec, err := mgr.Start(ctx, spec)
	if err != nil {
		return err
	}
	printJSON(rec)
	return nil
}

// Stop signals a tracked process and removes its record.
func (c command) Stop(ctx context.Context, f StopFlags) error {
	scope, err := resolveScope(f.Scope)
	if err != nil {
		return err
	}
	if f.APIUrl != "" {
		api := c.newAPIClient(f.APIUrl, f.APITimeout)
		if err := api.Stop(ctx, f.Name, scope); err != nil {
			return err
		}
		fmt.Printf("stopped %s\n", f.Name)
		return nil
	}
	mgr, err := c.newManager(f.ConfigPath)
	if err != nil {
		return err
	}
	if err := mgr.Stop(ctx, f.Name, scope); err != nil {
		return err
	}
	fmt.Printf("stopped %s\n", f.Name)
	return nil
}

// Status prints the processes visible from the scope.
func (c command) Status(ctx context.Context, f StatusFlags) error {
	scope, err := resolveScope(f.Scope)
	if err != nil {
		return err
	}
	if f.APIUrl != "" {
		api := c.newAPIClient(f.APIUrl, f.APITimeout)
		sts, err := api.Status(ctx, scope)
		if err != nil {
			return err
		}
		printJSON(sts)
		return nil
	}
	mgr, err := c.newManager(f.ConfigPath)
	if err != nil {
		return err
	}
	if f.JSON {
		sts, err := mgr.List(ctx, scope)
		if err != nil {
			return err
		}
		printJSON(sts)
		return nil
	}
	sum, err := mgr.Summary(ctx, scope)
	if err != nil {
		return err
	}
	fmt.Print(sum.Render())
	return nil
}

// Logs prints a process's captured output.
func (c command) Logs(ctx context.Context, f LogsFlags) error {
	scope, err := resolveScope(f.Scope)
	if err != nil {
		return err
	}
	if f.APIUrl != "" {
		api := c.newAPIClient(f.APIUrl, f.APITimeout)
		content, err := api.Logs(ctx, f.Name, scope, f.Lines)
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	}
	mgr, err := c.newManager(f.ConfigPath)
	if err != nil {
		return err
	}
	content, err := mgr.Logs(ctx, f.Name, scope, f.Lines)
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}
