package main

import "context"

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

// runtimeContext returns the Wails context, or nil before startup and after
// shutdown.
func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.ctx
	a.ctxMu.RUnlock()
	return ctx
}

// backgroundContext parents workers started after startup. It falls back to
// context.Background so API calls made before startup still work.
func (a *App) backgroundContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.bgCtx
	a.ctxMu.RUnlock()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
