package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// BrokerPublisher publishes events to a single channel of a Broker.
type BrokerPublisher struct {
	broker  Broker
	channel string
}

func NewBrokerPublisher(broker Broker, channel string) *BrokerPublisher {
	return &BrokerPublisher{broker: broker, channel: channel}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event Event) error {
	return p.broker.Publish(ctx, p.channel, event)
}

// Consume subscribes to channel and calls handler for every decoded event
// until ctx is done or the subscription closes. Decode and handler errors are
// passed to onError and do not stop consumption.
func Consume(ctx context.Context, broker Broker, channel string, handler func(context.Context, Event) error, onError func(error)) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	if onError == nil {
		onError = func(error) {}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				onError(fmt.Errorf("decode event: %w", err))
				continue
			}
			if err := handler(ctx, ev); err != nil {
				onError(fmt.Errorf("handle %s: %w", ev.Type, err))
			}
		}
	}
}
