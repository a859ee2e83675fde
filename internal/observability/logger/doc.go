// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request lleva su propio logger "scoped" con
//     request_id, method y path; los services lo extienden con license_fp y
//     device_id sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Las license keys nunca se loguean completas, solo su fingerprint.
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" o "prod"
//	    Level: cfg.Log.Level, // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En handlers/services:
//
//	log := logger.From(ctx)
//	log.Info("binding created", logger.Fingerprint(fp), logger.DeviceID(id))
package logger
