// Package swruntime implements the background worker that backs the PWA:
// shell asset caching with versioned cutover, request interception with
// network-first and cache-first strategies, push payload rendering with
// platform-specific sanitization, and notification click routing. Platform
// facilities (cache storage, network, notification presentation, window
// clients, push registration) sit behind small interfaces so the worker logic
// stays testable and host-independent.
package swruntime

import (
	"context"
	"net/http"
)

// LifecycleState tracks the worker version through its lifecycle.
type LifecycleState string

const (
	StateInstalling LifecycleState = "installing"
	StateInstalled  LifecycleState = "installed"
	StateActivating LifecycleState = "activating"
	StateActivated  LifecycleState = "activated"
)

// Message types exchanged between the worker and its clients.
const (
	MsgSkipWaiting        = "SKIP_WAITING"
	MsgSyncSubscriptions  = "SYNC_SUBSCRIPTIONS"
	MsgSubscriptionActive = "SUBSCRIPTION_ACTIVE"
)

// SyncSubscriptionsTag is the periodic background sync tag the worker reacts to.
const SyncSubscriptionsTag = "sync-subscriptions"

// Request is an intercepted network request.
type Request struct {
	Method string
	URL    string
	Path   string
}

// Response carries the result of a fetch or a cache hit.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Cache is a single named request/response cache.
type Cache interface {
	Match(key string) (*Response, bool)
	Put(key string, resp *Response)
}

// CacheStorage manages named caches. Deleting every cache except the current
// one at activate time is the only cache invalidation mechanism.
type CacheStorage interface {
	Open(name string) (Cache, error)
	Keys() ([]string, error)
	Delete(name string) error
}

// Fetcher performs live network fetches.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// NotificationAction is a button rendered on a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// NotificationOptions describes a rendered notification.
type NotificationOptions struct {
	Body               string
	Icon               string
	Badge              string
	Tag                string
	Vibrate            []int
	RequireInteraction bool
	Silent             bool
	Data               map[string]any
	Actions            []NotificationAction
}

// Presenter renders notifications to the user.
type Presenter interface {
	ShowNotification(title string, opts NotificationOptions) error
}

// Notification is a displayed notification the user interacted with.
type Notification interface {
	Data() map[string]any
	Close()
}

// Client is an open window under the worker's control.
type Client interface {
	URL() string
	Focus() error
	PostMessage(msg Message) error
}

// ClientManager enumerates and controls open windows.
type ClientManager interface {
	MatchAll(ctx context.Context) ([]Client, error)
	OpenWindow(ctx context.Context, url string) error
	Claim(ctx context.Context) error
}

// Subscription is the live push registration handle.
type Subscription struct {
	Endpoint string
}

// PushRegistry exposes the platform push registration state.
type PushRegistry interface {
	GetSubscription(ctx context.Context) (*Subscription, error)
}

// Message is a control message between worker and clients.
type Message struct {
	Type         string            `json:"type"`
	Subscription *SubscriptionInfo `json:"subscription,omitempty"`
}

// SubscriptionInfo announces an active subscription to page clients.
type SubscriptionInfo struct {
	Endpoint string `json:"endpoint"`
	Platform string `json:"platform"`
}
