// Package pwa implements the in-page controller bridging platform
// capabilities (notifications, push manager, service worker registration,
// install prompt) and the subscription registrar. The controller is an
// explicit dependency handed to the view layer; there is no ambient global.
package pwa

import (
	"context"
	"errors"
	"time"

	"mebel-pwa-backend/internal/swruntime"
)

// Sentinel errors surfaced by the subscribe flow.
var (
	// ErrPushUnsupported means the platform lacks service worker or push
	// manager support; the feature is silently disabled.
	ErrPushUnsupported = errors.New("push notifications not supported on this platform")

	// ErrPermissionDenied means the user or platform refused notification
	// permission.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrServerKeyUnavailable means the application server public key could
	// not be obtained; an operator-correctable configuration problem.
	ErrServerKeyUnavailable = errors.New("could not fetch push server key")
)

// Permission is the notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// LocalNotification describes an immediate in-page notification.
type LocalNotification struct {
	Body    string
	Icon    string
	Badge   string
	Vibrate []int
}

// NotificationGateway exposes the platform notification API.
type NotificationGateway interface {
	Supported() bool
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(title string, n LocalNotification) error
}

// SubscriptionKeys is the client public-key material of a push subscription.
type SubscriptionKeys struct {
	Auth   string `json:"auth"`
	P256DH string `json:"p256dh"`
}

// PushSubscription is a platform-issued push registration.
type PushSubscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// SubscribeOptions parameterize a push subscription request.
type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushManager exposes the platform push API. Subscribe returns
// ErrPermissionDenied (possibly wrapped) when the platform refuses.
type PushManager interface {
	Supported() bool
	GetSubscription(ctx context.Context) (*PushSubscription, error)
	Subscribe(ctx context.Context, opts SubscribeOptions) (*PushSubscription, error)
	Unsubscribe(ctx context.Context) error
}

// Registration is a live service worker registration.
type Registration interface {
	Update(ctx context.Context) error
	SupportsPeriodicSync() bool
	RegisterPeriodicSync(ctx context.Context, tag string, minInterval time.Duration) error
}

// WorkerRegistrar exposes service worker registration. Messages delivers
// worker-to-page control messages, such as the subscription-active broadcast.
type WorkerRegistrar interface {
	Supported() bool
	Register(ctx context.Context, script, scope string) (Registration, error)
	Ready(ctx context.Context) (Registration, error)
	Messages() <-chan swruntime.Message
}

// Environment answers page environment queries.
type Environment interface {
	Standalone() bool
	Hostname() string
	UserAgent() string
}

// InstallPromptEvent is a deferred native install prompt.
type InstallPromptEvent interface {
	Prompt(ctx context.Context) (accepted bool, err error)
}

// InstallPrompter delivers deferred install prompts as the platform
// announces installability.
type InstallPrompter interface {
	Events() <-chan InstallPromptEvent
}

// Registrar is the server-side subscription registry the controller talks to.
type Registrar interface {
	PublicKey(ctx context.Context) (string, error)
	Subscribe(ctx context.Context, sub PushSubscription, platform string) error
	Unsubscribe(ctx context.Context, endpoint string) error
}
