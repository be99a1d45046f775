// Package logger provides a factory for configured log/slog loggers.
//
// Loggers are created through functional options covering level, format,
// output, and static attributes, with environment presets for development
// and production deployments.
//
// Basic usage:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Current(), "authkit"),
//	)
//	log.Info("session restored", logger.UserID(id))
//
// Components accept *slog.Logger via options and default to logger.Discard()
// so that logging is always optional.
package logger
