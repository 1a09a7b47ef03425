package main

import (
	"strings"

	"github.com/spf13/cobra"

	"lotreel/internal/config"
)

func newRootCommand() *cobra.Command {
	var apiFlag string
	var configFlag string

	ctx := &commandContext{apiFlag: &apiFlag, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "lotreel",
		Short:         "Lotreel video pipeline CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Address of the lotreeld API (host:port)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newDispatchCommand(ctx))
	rootCmd.AddCommand(newRegenerateCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newScriptCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// commandContext resolves shared CLI state lazily so commands that never talk
// to the daemon do not require a config file.
type commandContext struct {
	apiFlag    *string
	configFlag *string

	cfg    *config.Config
	client *apiClient
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) apiAddress() (string, error) {
	if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
		return addr, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(cfg.Paths.APIBind), nil
}

func (c *commandContext) ensureClient() (*apiClient, error) {
	if c.client != nil {
		return c.client, nil
	}
	addr, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	client, err := newAPIClient(addr)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}
