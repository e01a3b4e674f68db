package config

import (
	"fmt"
	"strings"
)

func (c *Config) validate() error {
	if err := c.validateRequiredFields(); err != nil {
		return err
	}

	if err := c.validateWatcherSettings(); err != nil {
		return err
	}

	return c.validateMirrors()
}

func (c *Config) validateRequiredFields() error {
	var missingFields []string

	if c.BotToken == "" {
		missingFields = append(missingFields, "BOT_TOKEN")
	}
	if c.AdminID == 0 {
		missingFields = append(missingFields, "ADMIN_ID")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (c *Config) validateWatcherSettings() error {
	if c.WatcherSettings.TwitterPollInterval <= 0 {
		return fmt.Errorf("twitter poll interval must be positive")
	}
	if c.WatcherSettings.RedditPollInterval <= 0 {
		return fmt.Errorf("reddit poll interval must be positive")
	}
	if c.WatcherSettings.ItemDelay < 0 {
		return fmt.Errorf("watcher item delay cannot be negative")
	}
	return nil
}

func (c *Config) validateMirrors() error {
	for _, m := range c.RedditMirrors {
		if !strings.HasPrefix(m, "http://") && !strings.HasPrefix(m, "https://") {
			return fmt.Errorf("reddit mirror %q must be an absolute http(s) URL", m)
		}
	}
	return nil
}
