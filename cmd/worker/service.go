package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	DB        pinger
	PubSub    pinger
	Consumers map[string]consumer
}

// Service runs the subscription consumers side by side and stops when any
// of them fails.
type Service struct {
	logg      *logger.Logger
	db        pinger
	pubsub    pinger
	consumers map[string]consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		db:        params.DB,
		pubsub:    params.PubSub,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(s.consumers))
	for name, c := range s.consumers {
		go func() {
			exits <- exit{name: name, err: c.Run(ctx)}
		}()
	}

	first := <-exits
	// Receive returns nil once its context ends, so a nil exit is only clean
	// when shutdown was requested.
	if first.err == nil && parent.Err() == nil {
		first.err = errors.New("consumer stopped")
	}
	cancel()
	for range len(s.consumers) - 1 {
		<-exits
	}

	if first.err != nil && !errors.Is(first.err, context.Canceled) {
		s.logg.Error(s.logg.WithField(ctx, "consumer", first.name), "consumer stopped unexpectedly", first.err)
		return fmt.Errorf("%s: %w", first.name, first.err)
	}
	s.logg.Info(ctx, "worker context canceled")
	return context.Canceled
}
