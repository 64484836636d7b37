package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"mebel-pwa-backend/internal/model"
	"mebel-pwa-backend/internal/store"
)

// Broadcast describes a single push message to deliver to every active
// subscription. Fields mirror the notification payload wire format consumed
// by the service worker; empty fields fall back to the worker defaults there.
type Broadcast struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
}

// payload is the JSON object sent over the push channel.
type payload struct {
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body,omitempty"`
	Icon  string         `json:"icon,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender implementation using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers delivering push broadcasts.
type WorkerPool struct {
	size    int
	jobs    chan Broadcast
	store   store.Store
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Broadcast, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender replaces the push sender. Used by tests.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case b := <-wp.jobs:
			wp.deliver(ctx, b)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a broadcast for delivery.
func (wp *WorkerPool) Dispatch(b Broadcast) {
	wp.jobs <- b
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Broadcast {
	return wp.jobs
}

// deliver sends the broadcast to every active subscription.
func (wp *WorkerPool) deliver(ctx context.Context, b Broadcast) {
	subs, err := wp.store.ListActiveSubscriptions(ctx)
	if err != nil {
		log.Printf("Error fetching active subscriptions: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	msg := payload{Title: b.Title, Body: b.Body, Icon: b.Icon}
	if b.URL != "" {
		msg.Data = map[string]any{"url": b.URL}
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding push payload: %v", err)
		return
	}

	log.Printf("Delivering broadcast to %d subscriptions", len(subs))
	for _, sub := range subs {
		wp.send(ctx, sub, raw)
	}
}

// send delivers a single web push notification. Endpoints the push service
// reports as gone are deactivated rather than deleted, so the row stays
// around for diagnostics until the client unsubscribes explicitly.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, raw []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(raw, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		log.Printf("Subscription %s reported gone by push service (%d). Deactivating.", sub.Endpoint, resp.StatusCode)
		if err := wp.store.DeactivateSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to deactivate subscription %s: %v", sub.Endpoint, err)
		}
	}
}
