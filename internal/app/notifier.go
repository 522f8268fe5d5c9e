/**
 * @description
 * This file implements the admin notifier: the collaborator that alerts the
 * administrator when a new transfer request is submitted. Delivery is strictly
 * best-effort — every failure path is caught and logged, and nothing here can
 * fail or roll back the submission that triggered it.
 *
 * Two channels are attempted, once each:
 * - A `transfer.request.submitted` event published to the durable topic exchange.
 * - An FCM push to the registered admin device; if no device is registered the
 *   push is skipped silently.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/otransous/topup-service/internal/domain"
	"github.com/otransous/topup-service/internal/store"
	"github.com/otransous/topup-service/pkg/rabbitmq"
)

const (
	eventsExchange          = "otransous.events"
	requestSubmittedRouting = "transfer.request.submitted"
)

// PushSender delivers a push notification to a single device token.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// Notifier is the production AdminNotifier. Either the producer or the push
// sender may be nil; the corresponding channel is then skipped.
type Notifier struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	push     PushSender
}

// NewNotifier creates an admin notifier.
func NewNotifier(repo store.Repository, producer rabbitmq.Publisher, push PushSender) *Notifier {
	return &Notifier{repo: repo, producer: producer, push: push}
}

// RequestSubmitted delivers the event to the broker and the admin device. It
// runs on the submitting request's goroutine but on a detached context, so
// caller cancellation cannot cut the single delivery attempt short.
func (n *Notifier) RequestSubmitted(event domain.RequestSubmittedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n.producer != nil {
		if err := n.producer.Publish(ctx, eventsExchange, requestSubmittedRouting, event); err != nil {
			log.Printf("level=warn component=notifier msg=\"event publish failed\" request_id=%s err=%v", event.RequestID, err)
		}
	}

	if n.push == nil {
		return
	}

	device, err := n.repo.GetAdminDevice(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoAdminDevice) {
			log.Printf("level=info component=notifier msg=\"no admin device registered; push skipped\" request_id=%s", event.RequestID)
			return
		}
		log.Printf("level=warn component=notifier msg=\"admin device lookup failed\" request_id=%s err=%v", event.RequestID, err)
		return
	}

	title := "New transfer request"
	body := fmt.Sprintf("%s recharge of %d for %s", event.Network, event.Amount, event.RecipientNumber)
	data := map[string]string{
		"request_id": event.RequestID.String(),
		"network":    event.Network,
	}
	if err := n.push.Send(ctx, device.DeviceToken, title, body, data); err != nil {
		log.Printf("level=warn component=notifier msg=\"push delivery failed\" request_id=%s err=%v", event.RequestID, err)
	}
}
