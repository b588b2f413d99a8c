package ports

import "context"

// Logger is the structured logging port shared by the report service, the
// adapters and the commands. Packages under internal/pnl never log.
//
// Fields are merged left to right; the request id carried by ctx, if any, is
// attached by the implementation.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err under the "error" field.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
