package workspace

import (
	"errors"
	"sync"
)

var (
	liveMu sync.Mutex
	live   = make(map[*Workspace]struct{})
)

func register(w *Workspace) {
	liveMu.Lock()
	live[w] = struct{}{}
	liveMu.Unlock()
}

func unregister(w *Workspace) {
	liveMu.Lock()
	delete(live, w)
	liveMu.Unlock()
}

// Live returns the number of workspaces acquired and not yet released
func Live() int {
	liveMu.Lock()
	defer liveMu.Unlock()
	return len(live)
}

// ReleaseAll releases every live workspace. It is meant for process exit
// paths such as signal handlers.
func ReleaseAll() error {
	liveMu.Lock()
	pending := make([]*Workspace, 0, len(live))
	for w := range live {
		pending = append(pending, w)
	}
	liveMu.Unlock()

	var errs []error
	for _, w := range pending {
		if err := w.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
