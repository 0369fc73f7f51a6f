package main

import (
	"github.com/fwojciec/legalaudit/gojsonschema"
	"github.com/fwojciec/legalaudit/jsonrpc"
	laslog "github.com/fwojciec/legalaudit/slog"
	"github.com/fwojciec/legalaudit/stdio"
)

// Run executes the serve command. It returns once the input stream has ended
// or the context is cancelled, and every dispatched request has replied.
func (c *ServeCmd) Run(deps *Dependencies) error {
	opts := []jsonrpc.Option{
		jsonrpc.WithValidator(gojsonschema.NewValidator()),
		jsonrpc.WithLogger(deps.Logger),
	}
	for _, closer := range deps.Closers {
		opts = append(opts, jsonrpc.WithCloser(closer))
	}
	server := jsonrpc.NewServer(deps.Manifest, deps.Auditor.Tools(), opts...)

	deps.Logger.Info("serving", "name", deps.Manifest.Name, "version", deps.Manifest.Version, "tools", server.Tools())

	t := stdio.Attach(deps.Ctx, laslog.NewLoggingHandler(server, deps.Logger), deps.Stdin, deps.Stdout,
		stdio.WithLogger(deps.Logger),
		stdio.WithMaxBodySize(c.MaxBodySize),
	)

	select {
	case <-t.Done():
	case <-deps.Ctx.Done():
		t.Detach()
	}
	t.Wait()
	return nil
}
