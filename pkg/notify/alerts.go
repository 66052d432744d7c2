package notify

import (
	"context"
	"fmt"
	"html"

	"klunkaz/pkg/registry"
)

const defaultQueueSize = 64

// BikeLookup resolves a bike for the alert body.
type BikeLookup interface {
	GetBike(id registry.BikeID) (registry.Bike, error)
}

// StolenAlerts emails the alert address whenever a bike is flagged stolen or
// recovered. Publish only queues; Run does the sending.
type StolenAlerts struct {
	email EmailService
	to    string
	bikes BikeLookup
	log   registry.Logger
	queue chan registry.Event
}

func NewStolenAlerts(email EmailService, to string, bikes BikeLookup, log registry.Logger) *StolenAlerts {
	return &StolenAlerts{
		email: email,
		to:    to,
		bikes: bikes,
		log:   log,
		queue: make(chan registry.Event, defaultQueueSize),
	}
}

// SetBikeLookup attaches the registry once it exists. Call it before Run.
func (a *StolenAlerts) SetBikeLookup(bikes BikeLookup) {
	a.bikes = bikes
}

// Publish queues stolen and recovered events. When the queue is full the
// event is dropped and logged.
func (a *StolenAlerts) Publish(e registry.Event) {
	if e.Type != registry.EventStolen && e.Type != registry.EventRecovered {
		return
	}
	select {
	case a.queue <- e:
	default:
		a.log.Warnf("alert queue full, dropping %s for bike %d", e.Type, e.BikeID)
	}
}

// Run sends queued alerts until ctx is done.
func (a *StolenAlerts) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.queue:
			if err := a.send(e); err != nil {
				a.log.Errorf("alert for bike %d: %s", e.BikeID, err)
				continue
			}
			a.log.Infof("sent %s alert for bike %d", e.Type, e.BikeID)
		}
	}
}

func (a *StolenAlerts) send(e registry.Event) error {
	name := fmt.Sprintf("Bike #%d", e.BikeID)
	if a.bikes != nil {
		if b, err := a.bikes.GetBike(e.BikeID); err == nil && b.Details.Title != "" {
			name = fmt.Sprintf("%s %s (#%d)", b.Details.Brand, b.Details.Title, e.BikeID)
		}
	}

	var subject, plain string
	if e.Type == registry.EventStolen {
		subject = "Stolen bike reported: " + name
		plain = fmt.Sprintf("%s was marked as stolen by %s at %s.", name, e.Actor, e.At.Format("2006-01-02 15:04 MST"))
	} else {
		subject = "Bike recovered: " + name
		plain = fmt.Sprintf("%s is no longer marked as stolen (updated by %s at %s).", name, e.Actor, e.At.Format("2006-01-02 15:04 MST"))
	}
	return a.email.SendEmail(subject, a.to, plain, "<p>"+html.EscapeString(plain)+"</p>")
}
