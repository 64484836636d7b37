package swruntime

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"mebel-pwa-backend/internal/platform"
)

// Config tunes a Worker instance.
type Config struct {
	CacheName   string
	ShellAssets []string
	APIPrefix   string
	Platform    platform.Platform

	DefaultTitle string
	DefaultBody  string
	DefaultIcon  string
	Tag          string
	Vibration    []int
	Actions      []NotificationAction
}

func (c *Config) applyDefaults() {
	if c.CacheName == "" {
		c.CacheName = "sherdor-mebel-v1"
	}
	if len(c.ShellAssets) == 0 {
		c.ShellAssets = []string{"/", "/manifest.json", "/icon-192.jpg", "/icon-512.jpg"}
	}
	if c.APIPrefix == "" {
		c.APIPrefix = "/api/"
	}
	if c.Platform == "" {
		c.Platform = platform.Web
	}
	if c.DefaultTitle == "" {
		c.DefaultTitle = "Sherdor Mebel"
	}
	if c.DefaultBody == "" {
		c.DefaultBody = "Yangi xabar"
	}
	if c.DefaultIcon == "" {
		c.DefaultIcon = "/icon-192.jpg"
	}
	if c.Tag == "" {
		c.Tag = "sherdor-mebel-notification"
	}
	if len(c.Vibration) == 0 {
		c.Vibration = []int{100, 50, 100}
	}
	if len(c.Actions) == 0 {
		c.Actions = []NotificationAction{
			{Action: "explore", Title: "Ko'rish", Icon: c.DefaultIcon},
			{Action: "close", Title: "Yopish", Icon: c.DefaultIcon},
		}
	}
}

// Deps bundles the platform facilities a Worker runs on.
type Deps struct {
	Caches    CacheStorage
	Fetcher   Fetcher
	Presenter Presenter
	Clients   ClientManager
	Pushes    PushRegistry
}

// Worker is one service worker version. The host delivers lifecycle and
// platform events by calling the corresponding handler; within one Worker
// the host serializes deliveries of a given event type.
type Worker struct {
	cfg  Config
	deps Deps

	mu          sync.Mutex
	state       LifecycleState
	skipWaiting bool
}

// NewWorker creates a worker in the installing state.
func NewWorker(cfg Config, deps Deps) *Worker {
	cfg.applyDefaults()
	return &Worker{
		cfg:   cfg,
		deps:  deps,
		state: StateInstalling,
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() LifecycleState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SkipWaitingRequested reports whether the worker asked to activate without
// waiting for old clients to close.
func (w *Worker) SkipWaitingRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skipWaiting
}

func (w *Worker) setState(s LifecycleState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) requestSkipWaiting() {
	w.mu.Lock()
	w.skipWaiting = true
	w.mu.Unlock()
}

// Install pre-populates the shell cache. Individual asset failures are logged
// and tolerated so one missing asset does not fail the whole install. The new
// version always requests immediate activation.
func (w *Worker) Install(ctx context.Context) error {
	log.Printf("[SW] Installing service worker (platform=%s)", w.cfg.Platform)

	cache, err := w.deps.Caches.Open(w.cfg.CacheName)
	if err != nil {
		return fmt.Errorf("failed to open cache %q: %w", w.cfg.CacheName, err)
	}

	for _, asset := range w.cfg.ShellAssets {
		resp, err := w.deps.Fetcher.Fetch(ctx, Request{Method: http.MethodGet, URL: asset, Path: asset})
		if err != nil || !resp.OK() {
			log.Printf("[SW] Failed to cache shell asset %q: %v", asset, err)
			continue
		}
		cache.Put(asset, resp)
	}

	w.requestSkipWaiting()
	w.setState(StateInstalled)
	return nil
}

// Activate deletes every cache except the current version's and claims all
// open clients so they are controlled immediately.
func (w *Worker) Activate(ctx context.Context) error {
	log.Printf("[SW] Activating service worker")
	w.setState(StateActivating)

	names, err := w.deps.Caches.Keys()
	if err != nil {
		return fmt.Errorf("failed to enumerate caches: %w", err)
	}
	for _, name := range names {
		if name == w.cfg.CacheName {
			continue
		}
		log.Printf("[SW] Deleting old cache: %s", name)
		if err := w.deps.Caches.Delete(name); err != nil {
			return fmt.Errorf("failed to delete cache %q: %w", name, err)
		}
	}

	if err := w.deps.Clients.Claim(ctx); err != nil {
		return fmt.Errorf("failed to claim clients: %w", err)
	}

	w.setState(StateActivated)
	return nil
}

// HandleFetch intercepts a request. Non-GET requests pass through to the
// network untouched. API requests are network-first with cache write-back;
// everything else is cache-first with a synthetic offline response when both
// the cache and the network miss.
func (w *Worker) HandleFetch(ctx context.Context, req Request) (*Response, error) {
	if req.Method != http.MethodGet {
		return w.deps.Fetcher.Fetch(ctx, req)
	}

	if strings.HasPrefix(req.Path, w.cfg.APIPrefix) {
		return w.fetchNetworkFirst(ctx, req)
	}
	return w.fetchCacheFirst(ctx, req)
}

func (w *Worker) fetchNetworkFirst(ctx context.Context, req Request) (*Response, error) {
	resp, err := w.deps.Fetcher.Fetch(ctx, req)
	if err == nil {
		if resp.OK() {
			if cache, cerr := w.deps.Caches.Open(w.cfg.CacheName); cerr == nil {
				cache.Put(req.URL, resp)
			}
		}
		return resp, nil
	}

	if cache, cerr := w.deps.Caches.Open(w.cfg.CacheName); cerr == nil {
		if cached, ok := cache.Match(req.URL); ok {
			return cached, nil
		}
	}
	// No cached fallback; the failure is user-visible.
	return nil, err
}

func (w *Worker) fetchCacheFirst(ctx context.Context, req Request) (*Response, error) {
	if cache, err := w.deps.Caches.Open(w.cfg.CacheName); err == nil {
		if cached, ok := cache.Match(req.URL); ok {
			return cached, nil
		}
	}

	resp, err := w.deps.Fetcher.Fetch(ctx, req)
	if err == nil {
		return resp, nil
	}

	log.Printf("[SW] Offline fallback for %s: %v", req.URL, err)
	return offlineResponse(), nil
}

func offlineResponse() *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   []byte("Offline"),
	}
}
