// Package logger provides structured logging utilities built on log/slog.
//
// New builds a *slog.Logger from options, with presets per environment:
//
//	log := logger.New(
//		logger.WithProduction("spinstream"),
//		logger.WithLevel(slog.LevelInfo),
//	)
//
//	// Development: text format, debug level, stdout
//	devLog := logger.New(logger.WithDevelopment("spinstream"))
//
// Attribute helpers keep keys consistent across packages and are nil safe:
// logger.Error(nil) yields an empty attribute that slog drops.
//
//	log.Warn("connection detached",
//		logger.Component("broadcast"),
//		logger.Channel("table-1"),
//		logger.ConnectionID(conn.ID),
//		logger.Error(err),
//	)
//
// Libraries in this module never log through slog.Default. They accept a
// *slog.Logger option and default to Discard().
package logger
