package swruntime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mebel-pwa-backend/internal/platform"
)

// pushPayload is the structured wire format of a push message. Any field may
// be absent; absent fields keep the worker defaults.
type pushPayload struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Icon    string         `json:"icon"`
	Badge   string         `json:"badge"`
	Vibrate []int          `json:"vibrate"`
	Data    map[string]any `json:"data"`
}

// HandlePush renders a notification for an incoming push message. A payload
// that fails to parse as JSON is treated as opaque text and becomes the
// notification body. Errors are logged and the event resolves; a push must
// never fail out of the worker.
func (w *Worker) HandlePush(ctx context.Context, data []byte) {
	title := w.cfg.DefaultTitle
	p := pushPayload{
		Body:    w.cfg.DefaultBody,
		Icon:    w.cfg.DefaultIcon,
		Badge:   w.cfg.DefaultIcon,
		Vibrate: w.cfg.Vibration,
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			p.Body = string(data)
		} else if p.Title != "" {
			title = p.Title
		}
	}
	if p.Body == "" {
		p.Body = w.cfg.DefaultBody
	}
	if p.Icon == "" {
		p.Icon = w.cfg.DefaultIcon
	}
	if p.Badge == "" {
		p.Badge = w.cfg.DefaultIcon
	}
	if len(p.Vibrate) == 0 {
		p.Vibrate = w.cfg.Vibration
	}

	notificationData := map[string]any{
		"dateOfArrival": time.Now().UnixMilli(),
		"url":           "/",
	}
	for k, v := range p.Data {
		notificationData[k] = v
	}

	opts := NotificationOptions{
		Body:               p.Body,
		Icon:               p.Icon,
		Badge:              p.Badge,
		Tag:                w.cfg.Tag,
		Vibrate:            p.Vibrate,
		RequireInteraction: true,
		Silent:             false,
		Data:               notificationData,
		Actions:            append([]NotificationAction(nil), w.cfg.Actions...),
	}

	// iOS does not render badges and limits notifications to one action.
	if w.cfg.Platform == platform.IOS {
		opts.Badge = ""
		if len(opts.Actions) > 1 {
			opts.Actions = opts.Actions[:1]
		}
	}

	if err := w.deps.Presenter.ShowNotification(title, opts); err != nil {
		log.Printf("[SW] Failed to show notification: %v", err)
	}
}

// HandleNotificationClick closes the notification, then focuses an open
// window already showing the target URL, or opens a new one.
func (w *Worker) HandleNotificationClick(ctx context.Context, n Notification) {
	n.Close()

	urlToOpen := "/"
	if data := n.Data(); data != nil {
		if u, ok := data["url"].(string); ok && u != "" {
			urlToOpen = u
		}
	}

	clients, err := w.deps.Clients.MatchAll(ctx)
	if err != nil {
		log.Printf("[SW] Failed to enumerate clients: %v", err)
		return
	}
	for _, c := range clients {
		if c.URL() == urlToOpen {
			if err := c.Focus(); err != nil {
				log.Printf("[SW] Failed to focus client %s: %v", c.URL(), err)
			}
			return
		}
	}

	if err := w.deps.Clients.OpenWindow(ctx, urlToOpen); err != nil {
		log.Printf("[SW] Failed to open window %s: %v", urlToOpen, err)
	}
}

// HandleMessage reacts to control messages from page clients.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) {
	switch msg.Type {
	case MsgSkipWaiting:
		w.requestSkipWaiting()
	case MsgSyncSubscriptions:
		w.SyncSubscriptions(ctx)
	}
}

// HandlePeriodicSync reacts to a periodic background sync wake-up. Only the
// subscription sync tag is recognized.
func (w *Worker) HandlePeriodicSync(ctx context.Context, tag string) {
	if tag == SyncSubscriptionsTag {
		w.SyncSubscriptions(ctx)
	}
}

// SyncSubscriptions reads the live push registration and, when one exists,
// broadcasts its endpoint and platform to every open client so pages can
// reconcile their subscription state without re-deriving it.
func (w *Worker) SyncSubscriptions(ctx context.Context) {
	sub, err := w.deps.Pushes.GetSubscription(ctx)
	if err != nil {
		log.Printf("[SW] Error syncing subscriptions: %v", err)
		return
	}
	if sub == nil {
		return
	}

	clients, err := w.deps.Clients.MatchAll(ctx)
	if err != nil {
		log.Printf("[SW] Error enumerating clients for sync: %v", err)
		return
	}
	msg := Message{
		Type: MsgSubscriptionActive,
		Subscription: &SubscriptionInfo{
			Endpoint: sub.Endpoint,
			Platform: string(w.cfg.Platform),
		},
	}
	for _, c := range clients {
		if err := c.PostMessage(msg); err != nil {
			log.Printf("[SW] Failed to post message to client %s: %v", c.URL(), err)
		}
	}
}
