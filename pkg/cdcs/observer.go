package cdcs

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// EventKind names an observable client occurrence.
type EventKind string

const (
	EventVersionResolved EventKind = "version.resolved"
	EventPageFetched     EventKind = "page.fetched"
	EventEntityCreated   EventKind = "entity.created"
	EventEntityUpdated   EventKind = "entity.updated"
	EventEntityDeleted   EventKind = "entity.deleted"
	EventAssigned        EventKind = "entity.assigned"
	EventAssignFailed    EventKind = "entity.assign_failed"
	EventSettingChanged  EventKind = "setting.changed"
)

// Event is emitted for progress and confirmations. The library never
// prints; callers decide what to surface.
type Event struct {
	Kind        EventKind
	OperationID string

	// Entity is the entity type ("record", "template", ...).
	Entity string
	ID     ID
	Name   string

	// Page, Fetched and Total describe pagination progress.
	Page    int
	Fetched int
	Total   int

	// Detail carries free-form context such as the generation source.
	Detail string
	Err    error
}

// Observer receives events synchronously on the calling goroutine.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// LoggerObserver writes events to an hclog logger.
type LoggerObserver struct {
	Logger hclog.Logger
}

func (o LoggerObserver) Observe(_ context.Context, ev Event) {
	args := []interface{}{"op", ev.OperationID}
	if ev.Entity != "" {
		args = append(args, "entity", ev.Entity)
	}
	if !ev.ID.IsZero() {
		args = append(args, "id", ev.ID.String())
	}
	if ev.Name != "" {
		args = append(args, "name", ev.Name)
	}
	if ev.Kind == EventPageFetched {
		args = append(args, "page", ev.Page, "fetched", ev.Fetched, "total", ev.Total)
	}
	if ev.Detail != "" {
		args = append(args, "detail", ev.Detail)
	}
	if ev.Err != nil {
		o.Logger.Warn(string(ev.Kind), append(args, "error", ev.Err)...)
		return
	}
	o.Logger.Info(string(ev.Kind), args...)
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}

type operationKey struct{}

// WithOperationID tags ctx so every event raised under it shares id.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationKey{}, id)
}

// OperationID returns the operation id carried by ctx, if any.
func OperationID(ctx context.Context) string {
	id, _ := ctx.Value(operationKey{}).(string)
	return id
}

// startOperation gives ctx an operation id unless an outer call already did.
func startOperation(ctx context.Context) context.Context {
	if OperationID(ctx) != "" {
		return ctx
	}
	return WithOperationID(ctx, uuid.NewString())
}

func (c *Client) emit(ctx context.Context, ev Event) {
	ev.OperationID = OperationID(ctx)
	c.observer.Observe(ctx, ev)
}
