package repository

import (
	"context"
	"errors"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	pkgkafka "FinKPI/pkg/kafka"
)

// KafkaPublisher publishes refresh events keyed by ticker.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishRefreshed(ctx context.Context, ev *models.KpiRefreshed) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Ticker), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// FanoutPublisher delivers each event to every publisher and joins their errors.
type FanoutPublisher struct {
	pubs []domrepo.EventPublisher
}

var _ domrepo.EventPublisher = (*FanoutPublisher)(nil)

// NewFanoutPublisher skips nil publishers.
func NewFanoutPublisher(pubs ...domrepo.EventPublisher) *FanoutPublisher {
	out := make([]domrepo.EventPublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return &FanoutPublisher{pubs: out}
}

func (f *FanoutPublisher) PublishRefreshed(ctx context.Context, ev *models.KpiRefreshed) error {
	var errs []error
	for _, p := range f.pubs {
		if err := p.PublishRefreshed(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
