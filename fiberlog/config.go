package fiberlog

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Config is config for middleware
type Config struct {
	// Logger defaults to the standard logrus logger.
	Logger *logrus.Logger
	Tags   []string
	// Message is written as the entry message, "api request" when empty.
	Message string
	// SkipPaths are not logged when the request succeeded. A trailing "*" matches a prefix.
	SkipPaths []string
	// Skip, when set, decides per request after SkipPaths.
	Skip func(c *fiber.Ctx) bool
}

// ConfigDefault is the default config
var ConfigDefault = Config{
	Tags: []string{
		TagStatus,
		TagLatency,
		TagMethod,
		TagPath,
		TagSpaceID,
		TagUserID,
		RequestID,
	},
	Message: "api request",
}

// withDefaults fills the zero fields of cfg from ConfigDefault.
func withDefaults(config ...Config) Config {
	cfg := ConfigDefault
	if len(config) != 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if len(cfg.Tags) == 0 {
		cfg.Tags = ConfigDefault.Tags
	}
	if cfg.Message == "" {
		cfg.Message = ConfigDefault.Message
	}
	return cfg
}

// skipped reports whether a successful request on path is left out of the log.
func (cfg Config) skipped(c *fiber.Ctx, status int) bool {
	if status >= fiber.StatusBadRequest {
		return false
	}
	path := c.Path()
	for _, skip := range cfg.SkipPaths {
		if prefix, ok := strings.CutSuffix(skip, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == skip {
			return true
		}
	}
	return cfg.Skip != nil && cfg.Skip(c)
}
