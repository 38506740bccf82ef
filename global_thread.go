package threadrunner

import (
	"sync"
)

// =============================================================================
// Global Thread Helper (Singleton)
// =============================================================================

var (
	globalThread *Thread
	globalMu     sync.Mutex
)

// InitGlobalThread spawns the process-wide thread with cfg. Later calls are
// no-ops while a global thread exists.
func InitGlobalThread(cfg ThreadConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThread != nil {
		return nil
	}

	if cfg.Name == "" {
		cfg.Name = "global-thread"
	}
	th, err := SpawnWithConfig(cfg)
	if err != nil {
		return err
	}
	globalThread = th
	return nil
}

// GetGlobalThread returns the process-wide thread.
// It panics if InitGlobalThread has not been called.
func GetGlobalThread() *Thread {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThread == nil {
		panic("GlobalThread not initialized. Call InitGlobalThread() first.")
	}
	return globalThread
}

// ShutdownGlobalThread joins the process-wide thread and clears it, so a new
// one can be initialized.
func ShutdownGlobalThread() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThread == nil {
		return nil
	}
	err := globalThread.Join()
	globalThread = nil
	return err
}
