package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int64
}

// localWindow is the in-process fixed window used when redis is not
// configured. Counts are per process, so limits multiply with replicas.
type localWindow struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

func newLocalWindow() *localWindow {
	return &localWindow{clients: make(map[string]*clientInfo)}
}

// incr counts one hit for key and returns the count inside the current window.
func (w *localWindow) incr(key string, window time.Duration, now time.Time) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	ci, ok := w.clients[key]
	if !ok || now.Sub(ci.start) > window {
		if len(w.clients) > 10000 {
			w.prune(window, now)
		}
		ci = &clientInfo{start: now}
		w.clients[key] = ci
	}
	ci.count++
	return ci.count
}

func (w *localWindow) prune(window time.Duration, now time.Time) {
	for k, ci := range w.clients {
		if now.Sub(ci.start) > window {
			delete(w.clients, k)
		}
	}
}
