package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

// operator is the identity used for admin-only operations started from the CLI,
// whose caller already holds the database credential.
var operator = domain.Identity{Subject: "cli", Roles: []string{domain.RoleAdmin}}

type commandContext struct {
	configFlag *string
	levelFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, levelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, levelFlag: levelFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadPath(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
			cfg.Logging.Level = *c.levelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp builds the application for one command and closes it afterwards.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.Application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := logging.NewWriter(os.Stderr, cfg.Logging.Level)
	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close store failed", "error", cerr)
		}
	}()
	return fn(application)
}

func (c *commandContext) forceJSON() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}
