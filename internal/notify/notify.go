// Package notify publishes afk actions to NATS so other services (discord bots, dashboards)
// can react to warnings and kicks.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/nats-io/nats.go"
)

const (
	DefaultSubject = "squad.afk"
	reconnectWait  = 2 * time.Second
)

var (
	ErrConnect = errors.New("failed to connect to nats")
	ErrPublish = errors.New("failed to publish action")
)

// Message is the JSON document published for every action.
type Message struct {
	Kind      string    `json:"kind"`
	SteamID   string    `json:"steam_id"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedOn time.Time `json:"created_on"`
}

// Publisher implements afk.Recorder by publishing to `<subject>.<kind>`.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

func Connect(url string, subject string) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, errConnect := nats.Connect(url,
		nats.Name("squad-afk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Error("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			slog.Error("NATS error", slog.String("error", err.Error()))
		}))
	if errConnect != nil {
		return nil, errors.Join(errConnect, ErrConnect)
	}

	return &Publisher{conn: conn, subject: subject}, nil
}

// Subject returns the subject an action kind is published on.
func (p *Publisher) Subject(kind afk.ActionKind) string {
	return fmt.Sprintf("%s.%s", p.subject, kind)
}

func (p *Publisher) Record(_ context.Context, action afk.Action) error {
	payload, errJSON := json.Marshal(Message{
		Kind:      string(action.Kind),
		SteamID:   action.SteamID.String(),
		SessionID: action.SessionID.String(),
		Message:   action.Message,
		Error:     action.Error,
		CreatedOn: action.CreatedOn.UTC(),
	})
	if errJSON != nil {
		return errors.Join(errJSON, ErrPublish)
	}

	if errPublish := p.conn.Publish(p.Subject(action.Kind), payload); errPublish != nil {
		return errors.Join(errPublish, ErrPublish)
	}

	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
