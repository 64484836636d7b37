package pwa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mebel-pwa-backend/internal/platform"
	"mebel-pwa-backend/internal/swruntime"
)

const (
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

type fakeNotifications struct {
	supported  bool
	perm       Permission
	promptPerm Permission
	promptErr  error
	shown      []string
}

func (n *fakeNotifications) Supported() bool        { return n.supported }
func (n *fakeNotifications) Permission() Permission { return n.perm }

func (n *fakeNotifications) RequestPermission(ctx context.Context) (Permission, error) {
	if n.promptErr != nil {
		return PermissionDefault, n.promptErr
	}
	n.perm = n.promptPerm
	return n.promptPerm, nil
}

func (n *fakeNotifications) Show(title string, _ LocalNotification) error {
	n.shown = append(n.shown, title)
	return nil
}

type fakePushes struct {
	supported     bool
	sub           *PushSubscription
	subscribed    *PushSubscription
	subscribeErr  error
	subscribeOpts *SubscribeOptions
	revoked       bool
}

func (p *fakePushes) Supported() bool { return p.supported }

func (p *fakePushes) GetSubscription(ctx context.Context) (*PushSubscription, error) {
	return p.sub, nil
}

func (p *fakePushes) Subscribe(ctx context.Context, opts SubscribeOptions) (*PushSubscription, error) {
	p.subscribeOpts = &opts
	if p.subscribeErr != nil {
		return nil, p.subscribeErr
	}
	p.sub = p.subscribed
	return p.subscribed, nil
}

func (p *fakePushes) Unsubscribe(ctx context.Context) error {
	p.revoked = true
	p.sub = nil
	return nil
}

type fakeRegistration struct {
	periodicSupported bool
	syncTags          []string
	updates           int
}

func (r *fakeRegistration) Update(ctx context.Context) error {
	r.updates++
	return nil
}

func (r *fakeRegistration) SupportsPeriodicSync() bool { return r.periodicSupported }

func (r *fakeRegistration) RegisterPeriodicSync(ctx context.Context, tag string, _ time.Duration) error {
	r.syncTags = append(r.syncTags, tag)
	return nil
}

type fakeWorkers struct {
	supported  bool
	reg        *fakeRegistration
	regErr     error
	registered []string
	msgs       chan swruntime.Message
}

func newFakeWorkers(supported bool) *fakeWorkers {
	return &fakeWorkers{
		supported: supported,
		reg:       &fakeRegistration{},
		msgs:      make(chan swruntime.Message, 4),
	}
}

func (w *fakeWorkers) Supported() bool { return w.supported }

func (w *fakeWorkers) Register(ctx context.Context, script, scope string) (Registration, error) {
	if w.regErr != nil {
		return nil, w.regErr
	}
	w.registered = append(w.registered, script)
	return w.reg, nil
}

func (w *fakeWorkers) Ready(ctx context.Context) (Registration, error) {
	return w.reg, nil
}

func (w *fakeWorkers) Messages() <-chan swruntime.Message { return w.msgs }

type fakeEnv struct {
	standalone bool
	hostname   string
	ua         string
}

func (e *fakeEnv) Standalone() bool  { return e.standalone }
func (e *fakeEnv) Hostname() string  { return e.hostname }
func (e *fakeEnv) UserAgent() string { return e.ua }

type fakePromptEvent struct {
	accepted bool
	prompted bool
}

func (p *fakePromptEvent) Prompt(ctx context.Context) (bool, error) {
	p.prompted = true
	return p.accepted, nil
}

type fakePrompts struct {
	ch chan InstallPromptEvent
}

func (p *fakePrompts) Events() <-chan InstallPromptEvent { return p.ch }

type subscribeCall struct {
	sub      PushSubscription
	platform string
}

type fakeRegistrar struct {
	key            string
	keyErr         error
	subscribeCalls []subscribeCall
	subscribeErr   error
	unsubscribed   []string
}

func (r *fakeRegistrar) PublicKey(ctx context.Context) (string, error) {
	return r.key, r.keyErr
}

func (r *fakeRegistrar) Subscribe(ctx context.Context, sub PushSubscription, platform string) error {
	r.subscribeCalls = append(r.subscribeCalls, subscribeCall{sub: sub, platform: platform})
	return r.subscribeErr
}

func (r *fakeRegistrar) Unsubscribe(ctx context.Context, endpoint string) error {
	r.unsubscribed = append(r.unsubscribed, endpoint)
	return nil
}

type harness struct {
	controller    *Controller
	notifications *fakeNotifications
	pushes        *fakePushes
	workers       *fakeWorkers
	env           *fakeEnv
	prompts       *fakePrompts
	registrar     *fakeRegistrar
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		notifications: &fakeNotifications{supported: true, perm: PermissionDefault},
		pushes:        &fakePushes{supported: true},
		workers:       newFakeWorkers(true),
		env:           &fakeEnv{hostname: "mebel.example", ua: androidUA},
		prompts:       &fakePrompts{ch: make(chan InstallPromptEvent, 1)},
		registrar:     &fakeRegistrar{key: "BGVsbG8gd29ybGQ"},
	}
	h.controller = NewController(Options{UpdateInterval: time.Hour}, Deps{
		Notifications: h.notifications,
		Pushes:        h.pushes,
		Workers:       h.workers,
		Env:           h.env,
		Prompts:       h.prompts,
		Registrar:     h.registrar,
	})
	return h
}

func TestBootstrap(t *testing.T) {
	t.Run("derives state from the environment", func(t *testing.T) {
		h := newHarness(t)
		h.env.standalone = true
		h.notifications.perm = PermissionGranted
		h.workers.reg.periodicSupported = true

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		st := h.controller.State()
		assert.True(t, st.IsInstalled)
		assert.Equal(t, PermissionGranted, st.NotificationPermission)
		assert.True(t, st.IsPushSupported)
		assert.Equal(t, platform.Android, st.Platform)
		assert.Equal(t, []string{"/sw.js"}, h.workers.registered)
		assert.Equal(t, []string{swruntime.SyncSubscriptionsTag}, h.workers.reg.syncTags)
	})

	t.Run("skips worker registration on preview hosts", func(t *testing.T) {
		h := newHarness(t)
		h.env.hostname = "abc.vusercontent.example"

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		assert.Empty(t, h.workers.registered)
	})

	t.Run("no periodic sync off android", func(t *testing.T) {
		h := newHarness(t)
		h.env.ua = iphoneUA
		h.workers.reg.periodicSupported = true

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		assert.Empty(t, h.workers.reg.syncTags)
	})

	t.Run("seeds subscribed flag from existing subscription", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.sub = &PushSubscription{Endpoint: "https://push.example/live"}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		assert.True(t, h.controller.State().IsSubscribed)
	})

	t.Run("subscription-active broadcast flips subscribed flag", func(t *testing.T) {
		h := newHarness(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)
		require.False(t, h.controller.State().IsSubscribed)

		h.workers.msgs <- swruntime.Message{Type: swruntime.MsgSubscriptionActive}

		require.Eventually(t, func() bool {
			return h.controller.State().IsSubscribed
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("install prompt capture", func(t *testing.T) {
		h := newHarness(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		ev := &fakePromptEvent{accepted: true}
		h.prompts.ch <- ev

		require.Eventually(t, func() bool {
			return h.controller.State().IsInstallable
		}, time.Second, 10*time.Millisecond)

		require.NoError(t, h.controller.Install(ctx))
		assert.True(t, ev.prompted)
		st := h.controller.State()
		assert.True(t, st.IsInstalled)
		assert.False(t, st.IsInstallable)
	})
}

func TestSubscribe(t *testing.T) {
	bootstrap := func(t *testing.T, h *harness) context.Context {
		t.Helper()
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		h.controller.Bootstrap(ctx)
		return ctx
	}

	t.Run("full flow registers with the backend", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.subscribed = &PushSubscription{
			Endpoint: "https://push.example/new",
			Keys:     SubscriptionKeys{Auth: "a1", P256DH: "p1"},
		}
		ctx := bootstrap(t, h)

		require.NoError(t, h.controller.Subscribe(ctx))

		require.NotNil(t, h.pushes.subscribeOpts)
		assert.True(t, h.pushes.subscribeOpts.UserVisibleOnly)
		assert.NotEmpty(t, h.pushes.subscribeOpts.ApplicationServerKey)

		require.Len(t, h.registrar.subscribeCalls, 1)
		call := h.registrar.subscribeCalls[0]
		assert.Equal(t, "https://push.example/new", call.sub.Endpoint)
		assert.Equal(t, "android", call.platform)
		assert.True(t, h.controller.State().IsSubscribed)
	})

	t.Run("unsupported platform is a no-op", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.supported = false
		ctx := bootstrap(t, h)

		err := h.controller.Subscribe(ctx)
		assert.ErrorIs(t, err, ErrPushUnsupported)
		assert.Empty(t, h.registrar.subscribeCalls)
	})

	t.Run("existing subscription is not re-posted", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.sub = &PushSubscription{Endpoint: "https://push.example/live"}
		ctx := bootstrap(t, h)

		require.NoError(t, h.controller.Subscribe(ctx))
		assert.True(t, h.controller.State().IsSubscribed)
		assert.Empty(t, h.registrar.subscribeCalls)
	})

	t.Run("missing server key", func(t *testing.T) {
		h := newHarness(t)
		h.registrar.key = ""
		ctx := bootstrap(t, h)

		err := h.controller.Subscribe(ctx)
		assert.ErrorIs(t, err, ErrServerKeyUnavailable)
	})

	t.Run("permission denied carries ios wording", func(t *testing.T) {
		h := newHarness(t)
		h.env.ua = iphoneUA
		h.pushes.subscribeErr = ErrPermissionDenied
		ctx := bootstrap(t, h)

		err := h.controller.Subscribe(ctx)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Contains(t, err.Error(), "Settings")
		assert.False(t, h.controller.State().IsSubscribed)
	})

	t.Run("permission denied elsewhere stays generic", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.subscribeErr = ErrPermissionDenied
		ctx := bootstrap(t, h)

		err := h.controller.Subscribe(ctx)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.NotContains(t, err.Error(), "Settings")
	})

	t.Run("registrar failure keeps unsubscribed state", func(t *testing.T) {
		h := newHarness(t)
		h.pushes.subscribed = &PushSubscription{Endpoint: "https://push.example/new"}
		h.registrar.subscribeErr = assert.AnError
		ctx := bootstrap(t, h)

		err := h.controller.Subscribe(ctx)
		assert.Error(t, err)
		assert.False(t, h.controller.State().IsSubscribed)
	})
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t)
	h.pushes.sub = &PushSubscription{Endpoint: "https://push.example/live"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.controller.Bootstrap(ctx)
	require.True(t, h.controller.State().IsSubscribed)

	h.controller.Unsubscribe(ctx)

	assert.Equal(t, []string{"https://push.example/live"}, h.registrar.unsubscribed)
	assert.True(t, h.pushes.revoked)
	assert.False(t, h.controller.State().IsSubscribed)
}

func TestRequestPermission(t *testing.T) {
	t.Run("grant triggers subscribe", func(t *testing.T) {
		h := newHarness(t)
		h.notifications.promptPerm = PermissionGranted
		h.pushes.subscribed = &PushSubscription{Endpoint: "https://push.example/new"}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		h.controller.RequestPermission(ctx)

		assert.Equal(t, PermissionGranted, h.controller.State().NotificationPermission)
		assert.Len(t, h.registrar.subscribeCalls, 1)
	})

	t.Run("denial is recorded without subscribing", func(t *testing.T) {
		h := newHarness(t)
		h.notifications.promptPerm = PermissionDenied

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.controller.Bootstrap(ctx)

		h.controller.RequestPermission(ctx)

		assert.Equal(t, PermissionDenied, h.controller.State().NotificationPermission)
		assert.Empty(t, h.registrar.subscribeCalls)
	})
}

func TestNotify(t *testing.T) {
	h := newHarness(t)
	h.notifications.perm = PermissionDefault

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.controller.Bootstrap(ctx)

	h.controller.Notify("Test", "without permission")
	assert.Empty(t, h.notifications.shown, "no notification without granted permission")

	h.notifications.perm = PermissionGranted
	h.controller.Bootstrap(ctx)

	h.controller.Notify("Test", "with permission")
	assert.Equal(t, []string{"Test"}, h.notifications.shown)
}

func TestDecodeServerKey(t *testing.T) {
	unpadded, err := decodeServerKey("aGVsbG8")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), unpadded)

	padded, err := decodeServerKey("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), padded)

	urlSafe, err := decodeServerKey("_-8")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xef}, urlSafe)
}
