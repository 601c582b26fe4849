package fiberlog

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// getLogrusFields calls FuncTag functions on matching keys
func getLogrusFields(ftm map[string]FuncTag, c *fiber.Ctx, d *data) log.Fields {
	f := make(log.Fields, len(ftm))
	for k, ft := range ftm {
		value := ft(c, d)
		strValue, ok := value.(string)
		if ok {
			if strValue != "" {
				f[k] = strValue
			}
		} else {
			f[k] = value
		}
	}
	return f
}

// New creates a new middleware handler
func New(config ...Config) fiber.Handler {
	cfg := withDefaults(config...)
	pid := os.Getpid()
	ftm := getFuncTagMap(cfg)
	return func(c *fiber.Ctx) error {
		d := &data{pid: pid, start: time.Now()}
		chainErr := c.Next()
		d.end = time.Now()
		if c.Method() == fiber.MethodOptions {
			return chainErr
		}

		status := c.Response().StatusCode()
		if chainErr != nil {
			// the app error handler sets the status after this middleware returns
			status = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(chainErr, &fiberErr) {
				status = fiberErr.Code
			}
		}
		if cfg.skipped(c, status) {
			return chainErr
		}

		entry := cfg.Logger.WithFields(getLogrusFields(ftm, c, d))
		if chainErr != nil {
			entry = entry.WithError(chainErr).WithField(TagStatus, status)
		}
		entry.Log(levelFor(status), cfg.Message)
		return chainErr
	}
}

func levelFor(status int) log.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return log.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}
