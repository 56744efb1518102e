// Package observability provides logging, metrics, and tracing for opagate.
//
// Logging is structured via zap behind the Logger interface:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("decision", observability.String("policy", "orders/allow"))
//
// Metrics owns a Prometheus registry that every component registers into;
// Handler exposes it. Tracing uses the OpenTelemetry SDK with an optional
// OTLP gRPC exporter and W3C trace-context propagation.
package observability
