package claudesdk

import (
	"context"
	"fmt"
	"log/slog"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options, executes the
// callback function, and ensures proper cleanup via Close() when done.
//
// The callback receives a fully initialized Client that is ready for use.
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := claudesdk.WithClient(ctx, func(c claudesdk.Client) error {
//	    if err := c.Query(ctx, "Hello"); err != nil {
//	        return err
//	    }
//	    for msg, err := range c.ReceiveResponse(ctx) {
//	        if err != nil {
//	            return err
//	        }
//	        // process message...
//	    }
//	    return nil
//	},
//	    claudesdk.WithLogger(log),
//	    claudesdk.WithPermissionMode("acceptEdits"),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer closeAndLog(client, componentLogger(applyAgentOptions(opts), "with_client"))

	return fn(client)
}

// closeAndLog closes c, logging (rather than returning) any close failure:
// WithClient's contract is that the callback's error always wins.
func closeAndLog(c Client, log *slog.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close client", "error", err)
	}
}
