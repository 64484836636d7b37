package pwa

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mebel-pwa-backend/internal/platform"
	"mebel-pwa-backend/internal/swruntime"
)

// State is the controller's transient view of the PWA environment. It is
// derived from platform queries and never persisted.
type State struct {
	Platform               platform.Platform
	IsInstalled            bool
	IsInstallable          bool
	NotificationPermission Permission
	IsPushSupported        bool
	IsSubscribed           bool
}

// Options tune the controller.
type Options struct {
	ServiceWorkerPath    string
	Scope                string
	PreviewHostMarker    string
	UpdateInterval       time.Duration
	PeriodicSyncInterval time.Duration
	DefaultIcon          string
	Vibration            []int
}

func (o *Options) applyDefaults() {
	if o.ServiceWorkerPath == "" {
		o.ServiceWorkerPath = "/sw.js"
	}
	if o.Scope == "" {
		o.Scope = "/"
	}
	if o.PreviewHostMarker == "" {
		o.PreviewHostMarker = "vusercontent"
	}
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = time.Minute
	}
	if o.PeriodicSyncInterval <= 0 {
		o.PeriodicSyncInterval = 24 * time.Hour
	}
	if o.DefaultIcon == "" {
		o.DefaultIcon = "/icon-192.jpg"
	}
	if len(o.Vibration) == 0 {
		o.Vibration = []int{100, 50, 100}
	}
}

// Deps bundles the platform facilities the controller drives.
type Deps struct {
	Notifications NotificationGateway
	Pushes        PushManager
	Workers       WorkerRegistrar
	Env           Environment
	Prompts       InstallPrompter
	Registrar     Registrar
}

// Controller bridges the platform APIs and the subscription registrar for
// the page. Construct with NewController, then call Bootstrap once; the
// controller runs until the bootstrap context is cancelled.
type Controller struct {
	opts Options
	deps Deps

	mu       sync.Mutex
	state    State
	deferred InstallPromptEvent
}

// NewController creates an idle controller.
func NewController(opts Options, deps Deps) *Controller {
	opts.applyDefaults()
	return &Controller{
		opts: opts,
		deps: deps,
		state: State{
			Platform:               platform.Web,
			NotificationPermission: PermissionDefault,
		},
	}
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(mutate func(*State)) {
	c.mu.Lock()
	mutate(&c.state)
	c.mu.Unlock()
}

// Bootstrap probes the environment, wires platform listeners and registers
// the service worker. It corresponds to the page mount.
func (c *Controller) Bootstrap(ctx context.Context) {
	installed := c.deps.Env.Standalone()
	perm := PermissionDefault
	if c.deps.Notifications.Supported() {
		perm = c.deps.Notifications.Permission()
	}
	pushSupported := c.deps.Workers.Supported() && c.deps.Pushes.Supported()
	plat := platform.Detect(c.deps.Env.UserAgent(), "")
	log.Printf("[PWA] Detected platform: %s", plat)

	c.setState(func(s *State) {
		s.IsInstalled = installed
		s.NotificationPermission = perm
		s.IsPushSupported = pushSupported
		s.Platform = plat
	})

	go c.watchInstallPrompts(ctx)
	c.registerServiceWorker(ctx)
}

// watchInstallPrompts captures deferred native install prompts so the UI can
// trigger installation explicitly.
func (c *Controller) watchInstallPrompts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.deps.Prompts.Events():
			if !ok {
				return
			}
			c.mu.Lock()
			c.deferred = ev
			c.state.IsInstallable = true
			c.mu.Unlock()
		}
	}
}

func (c *Controller) registerServiceWorker(ctx context.Context) {
	// Preview sandboxes cannot serve a worker script; local notifications
	// still work there.
	if strings.Contains(c.deps.Env.Hostname(), c.opts.PreviewHostMarker) {
		log.Printf("[PWA] Service worker skipped in preview environment")
		return
	}
	if !c.deps.Workers.Supported() {
		return
	}

	reg, err := c.deps.Workers.Register(ctx, c.opts.ServiceWorkerPath, c.opts.Scope)
	if err != nil {
		log.Printf("[PWA] Service worker registration failed: %v", err)
		return
	}
	log.Printf("[PWA] Service worker registered")

	st := c.State()
	if st.IsPushSupported {
		sub, err := c.deps.Pushes.GetSubscription(ctx)
		if err != nil {
			log.Printf("[PWA] Failed to read existing subscription: %v", err)
		} else {
			c.setState(func(s *State) { s.IsSubscribed = sub != nil })
		}
	}

	if reg.SupportsPeriodicSync() && st.Platform == platform.Android {
		err := reg.RegisterPeriodicSync(ctx, swruntime.SyncSubscriptionsTag, c.opts.PeriodicSyncInterval)
		if err != nil {
			log.Printf("[PWA] Periodic sync registration failed: %v", err)
		} else {
			log.Printf("[PWA] Periodic sync registered for Android")
		}
	}

	go c.watchWorkerMessages(ctx)
	go c.pollForUpdates(ctx, reg)
}

// watchWorkerMessages reconciles the subscribed flag from the runtime's
// subscription-active broadcasts.
func (c *Controller) watchWorkerMessages(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.deps.Workers.Messages():
			if !ok {
				return
			}
			if msg.Type == swruntime.MsgSubscriptionActive {
				c.setState(func(s *State) { s.IsSubscribed = true })
			}
		}
	}
}

func (c *Controller) pollForUpdates(ctx context.Context, reg Registration) {
	ticker := time.NewTicker(c.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reg.Update(ctx); err != nil {
				log.Printf("[PWA] Service worker update check failed: %v", err)
			}
		}
	}
}

// Subscribe drives the full subscribe flow: ensure support, obtain the
// application server key, create the platform subscription and register it
// with the backend. The subscribed flag turns true only once the registrar
// accepts the subscription. Errors are returned so the UI can present them.
func (c *Controller) Subscribe(ctx context.Context) error {
	if !c.State().IsPushSupported {
		log.Printf("[PWA] Push notifications not supported on this platform")
		return ErrPushUnsupported
	}

	if _, err := c.deps.Workers.Ready(ctx); err != nil {
		return fmt.Errorf("service worker not ready: %w", err)
	}

	existing, err := c.deps.Pushes.GetSubscription(ctx)
	if err != nil {
		return fmt.Errorf("failed to read existing subscription: %w", err)
	}
	if existing != nil {
		// Already registered with the push service; nothing to re-post.
		c.setState(func(s *State) { s.IsSubscribed = true })
		return nil
	}

	key, err := c.deps.Registrar.PublicKey(ctx)
	if err != nil || key == "" {
		log.Printf("[PWA] Failed to fetch server key: %v", err)
		return ErrServerKeyUnavailable
	}
	serverKey, err := decodeServerKey(key)
	if err != nil {
		log.Printf("[PWA] Malformed server key: %v", err)
		return ErrServerKeyUnavailable
	}

	sub, err := c.deps.Pushes.Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: serverKey,
	})
	if err != nil {
		c.setState(func(s *State) { s.IsSubscribed = false })
		if errors.Is(err, ErrPermissionDenied) {
			return c.permissionError()
		}
		return fmt.Errorf("push subscription failed: %w", err)
	}

	if err := c.deps.Registrar.Subscribe(ctx, *sub, string(c.State().Platform)); err != nil {
		c.setState(func(s *State) { s.IsSubscribed = false })
		return fmt.Errorf("failed to register subscription: %w", err)
	}

	c.setState(func(s *State) { s.IsSubscribed = true })
	log.Printf("[PWA] Successfully subscribed to push notifications")
	return nil
}

// permissionError wraps ErrPermissionDenied with platform-specific wording;
// iOS users must enable notifications from system settings.
func (c *Controller) permissionError() error {
	if c.State().Platform == platform.IOS {
		return fmt.Errorf("%w: push notifications require explicit permission on iOS, check Settings > Notifications", ErrPermissionDenied)
	}
	return ErrPermissionDenied
}

// Unsubscribe revokes the push subscription. Best-effort: failures are
// logged, never returned.
func (c *Controller) Unsubscribe(ctx context.Context) {
	if !c.State().IsPushSupported {
		return
	}

	sub, err := c.deps.Pushes.GetSubscription(ctx)
	if err != nil {
		log.Printf("[PWA] Failed to read subscription for unsubscribe: %v", err)
		return
	}
	if sub == nil {
		return
	}

	if err := c.deps.Registrar.Unsubscribe(ctx, sub.Endpoint); err != nil {
		log.Printf("[PWA] Failed to notify server about unsubscription: %v", err)
	}
	if err := c.deps.Pushes.Unsubscribe(ctx); err != nil {
		log.Printf("[PWA] Failed to revoke platform subscription: %v", err)
	}

	c.setState(func(s *State) { s.IsSubscribed = false })
	log.Printf("[PWA] Unsubscribed from push notifications")
}

// RequestPermission prompts for notification permission and, when granted,
// attempts to subscribe. Subscribe failures here are logged only; the
// permission outcome is still recorded.
func (c *Controller) RequestPermission(ctx context.Context) {
	if !c.deps.Notifications.Supported() {
		log.Printf("[PWA] Notifications not supported on this browser")
		return
	}

	perm, err := c.deps.Notifications.RequestPermission(ctx)
	if err != nil {
		log.Printf("[PWA] Notification permission error: %v", err)
		return
	}
	c.setState(func(s *State) { s.NotificationPermission = perm })

	if perm == PermissionGranted && c.State().IsPushSupported {
		if err := c.Subscribe(ctx); err != nil {
			log.Printf("[PWA] Failed to subscribe after permission grant: %v", err)
		}
	}
}

// Install replays the deferred native install prompt.
func (c *Controller) Install(ctx context.Context) error {
	c.mu.Lock()
	ev := c.deferred
	c.mu.Unlock()
	if ev == nil {
		return nil
	}

	accepted, err := ev.Prompt(ctx)
	if err != nil {
		return fmt.Errorf("install prompt failed: %w", err)
	}
	if accepted {
		c.mu.Lock()
		c.state.IsInstallable = false
		c.state.IsInstalled = true
		c.deferred = nil
		c.mu.Unlock()
	}
	return nil
}

// Notify fires an immediate local notification when permission is granted.
func (c *Controller) Notify(title, body string) {
	if c.State().NotificationPermission != PermissionGranted {
		return
	}
	err := c.deps.Notifications.Show(title, LocalNotification{
		Body:    body,
		Icon:    c.opts.DefaultIcon,
		Badge:   c.opts.DefaultIcon,
		Vibrate: c.opts.Vibration,
	})
	if err != nil {
		log.Printf("[PWA] Failed to show notification: %v", err)
	}
}

// ScheduleNotify fires Notify after the given delay. The timer is in-memory
// only: it exposes no cancellation handle and does not survive a restart.
func (c *Controller) ScheduleNotify(title, body string, delayMinutes int) {
	if c.State().NotificationPermission != PermissionGranted {
		return
	}
	time.AfterFunc(time.Duration(delayMinutes)*time.Minute, func() {
		c.Notify(title, body)
	})
}

// decodeServerKey decodes a base64url application server key, tolerating
// both padded and unpadded forms.
func decodeServerKey(key string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(key, "="))
}
