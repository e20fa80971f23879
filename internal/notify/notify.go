// Package notify fans a list event out to every other participant of the
// list, over web push and email. Delivery is best effort: a failed channel
// is counted, never retried, and never blocks the request that triggered it.
package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/push"
)

// EmailSender is the slice of the email client the dispatcher uses.
type EmailSender interface {
	Configured() bool
	SendListUpdate(toEmail, listName, actorName string) error
}

// PushSender is the slice of the push service the dispatcher uses.
type PushSender interface {
	Send(sub *model.PushSubscription, payload push.Payload) error
}

// Stores bundles the read access the dispatcher needs to resolve recipients.
type Stores struct {
	Lists interface {
		GetByID(id int64) (*model.List, error)
	}
	Members interface {
		ListMembers(listID int64) ([]model.Member, error)
	}
	Users interface {
		GetByID(id int64) (*model.User, error)
	}
	Push interface {
		ListByUser(userID int64) ([]model.PushSubscription, error)
		DeleteByEndpoint(endpoint string) error
	}
}

// Result reports how a dispatch went, per channel.
type Result struct {
	PushNotified  int `json:"push_notified"`
	PushFailed    int `json:"push_failed"`
	EmailNotified int `json:"email_notified"`
	EmailFailed   int `json:"email_failed"`
}

// Dispatcher resolves the recipients of a list and notifies them.
type Dispatcher struct {
	stores Stores
	email  EmailSender
	pusher PushSender
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher. A nil pusher disables the push channel.
func NewDispatcher(stores Stores, email EmailSender, pusher PushSender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{stores: stores, email: email, pusher: pusher, logger: logger}
}

// ListUpdated notifies everyone on the list except the actor that the list
// changed. The message carries the actor's nickname and the list name.
func (d *Dispatcher) ListUpdated(listID, actorID int64, message string) (*Result, error) {
	list, err := d.stores.Lists.GetByID(listID)
	if err != nil {
		return nil, fmt.Errorf("load list: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("list %d not found", listID)
	}

	actorName := "Alguém"
	if actor, err := d.stores.Users.GetByID(actorID); err == nil && actor != nil {
		actorName = actor.Nickname
	}

	recipients, err := d.recipients(list, actorID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	payload := push.Payload{
		Title: list.Name,
		Body:  message,
		URL:   fmt.Sprintf("/lists/%d", list.ID),
		Tag:   fmt.Sprintf("list-%d", list.ID),
	}

	for _, rec := range recipients {
		d.sendPush(rec.userID, payload, result)
		d.sendEmail(rec.email, list.Name, actorName, result)
	}
	return result, nil
}

type recipient struct {
	userID int64
	email  string
}

// recipients returns the owner plus every active member, minus the actor.
func (d *Dispatcher) recipients(list *model.List, actorID int64) ([]recipient, error) {
	members, err := d.stores.Members.ListMembers(list.ID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	seen := map[int64]bool{actorID: true}
	var recipients []recipient

	if !seen[list.OwnerID] {
		seen[list.OwnerID] = true
		owner, err := d.stores.Users.GetByID(list.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("load owner: %w", err)
		}
		if owner != nil {
			recipients = append(recipients, recipient{userID: owner.ID, email: owner.Email})
		}
	}

	for _, m := range members {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		recipients = append(recipients, recipient{userID: m.UserID, email: m.Email})
	}
	return recipients, nil
}

func (d *Dispatcher) sendPush(userID int64, payload push.Payload, result *Result) {
	if d.pusher == nil {
		return
	}
	subs, err := d.stores.Push.ListByUser(userID)
	if err != nil {
		d.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		result.PushFailed++
		return
	}

	for i := range subs {
		sub := &subs[i]
		err := d.pusher.Send(sub, payload)
		switch {
		case err == nil:
			result.PushNotified++
		case errors.Is(err, push.ErrExpired):
			// The endpoint is gone for good, drop it so we stop trying.
			if err := d.stores.Push.DeleteByEndpoint(sub.Endpoint); err != nil {
				d.logger.Error("delete expired subscription", "endpoint", sub.Endpoint, "error", err)
			}
			result.PushFailed++
		default:
			d.logger.Warn("push delivery failed", "user_id", userID, "error", err)
			result.PushFailed++
		}
	}
}

func (d *Dispatcher) sendEmail(toEmail, listName, actorName string, result *Result) {
	if !d.email.Configured() {
		return
	}
	if err := d.email.SendListUpdate(toEmail, listName, actorName); err != nil {
		d.logger.Warn("email delivery failed", "to", toEmail, "error", err)
		result.EmailFailed++
		return
	}
	result.EmailNotified++
}
