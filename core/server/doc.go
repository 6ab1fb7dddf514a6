// Package server runs the HTTP listener with graceful shutdown.
//
// The server is tuned for long-lived streaming responses: there is no
// server-wide write timeout by default, because stream sinks set a per-write
// deadline through http.ResponseController instead. Read and idle timeouts
// still apply.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g.Go(srv.Run(ctx, handler))
//
// Stop triggers http.Server.Shutdown with the configured timeout. Handlers
// blocked on open streams must return on their own when their connection is
// detached or the request context ends; Shutdown does not cancel them.
package server
