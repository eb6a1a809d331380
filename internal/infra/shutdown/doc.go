// Package shutdown coordinates graceful termination of long-running
// commands.
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	ctx, stop := h.Notify(context.Background())
//	defer stop()
//	h.OnShutdown("subscriber", func(context.Context) error { return sub.Close() })
//	<-ctx.Done()
//	err := h.Shutdown()
package shutdown
