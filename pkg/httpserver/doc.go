// Package httpserver runs an http.Server bound to a context with graceful
// shutdown, and serves health probes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := srv.Run(ctx, router)
//
// Run returns nil after a clean shutdown. Listen failures are joined with
// ErrStart and drain failures with ErrShutdown.
package httpserver
