// Package logging provides structured logging for the Gray Logic HMI.
//
// It wraps log/slog so every component logs with the same handler, level and
// default fields (service, version, machine). JSON is the production format;
// text is for a developer terminal.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version).ForMachine(cfg.Machine.ID)
//	alarmLog := logger.Component("alarm")
//	alarmLog.Info("alarm raised", "message", rec.Message, "station", rec.Station)
//
// Never log PLC credentials, operator passwords or tokens.
package logging
