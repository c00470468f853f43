package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"eventrsvp/internal/domain"
)

type eventService struct {
	events domain.EventRepository
	store  domain.RegistrationStore
	cache  ParticipantCache
	logger *slog.Logger
}

// NewEventService creates an EventService. cache may be nil.
func NewEventService(events domain.EventRepository, store domain.RegistrationStore, cache ParticipantCache, logger *slog.Logger) domain.EventService {
	if cache == nil {
		cache = NoopParticipantCache{}
	}
	return &eventService{events: events, store: store, cache: cache, logger: logger}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", domain.ErrInvalidInput)
	}
	if event.EndTime.Before(event.StartTime) {
		return nil, fmt.Errorf("%w: event ends before it starts", domain.ErrInvalidInput)
	}
	if event.MaxParticipants != nil && *event.MaxParticipants <= 0 {
		return nil, fmt.Errorf("%w: max participants must be positive", domain.ErrInvalidInput)
	}
	if event.Payment != nil && event.Payment.BasePrice < 0 {
		return nil, fmt.Errorf("%w: base price cannot be negative", domain.ErrInvalidInput)
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) ListParticipants(ctx context.Context, eventID string, limit, offset int) ([]*domain.RSVP, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	rsvps, err := s.store.ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if rsvps == nil {
		rsvps = []*domain.RSVP{}
	}
	return rsvps, nil
}

// ParticipantCount returns the event's attendance, served from the cache when
// possible. The count feeds event pages, not the capacity check, which reads
// inside its own transaction.
func (s *eventService) ParticipantCount(ctx context.Context, eventID string) (int, error) {
	if count, ok, err := s.cache.Get(ctx, eventID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.logger.WarnContext(ctx, "participant count cache read", "event_id", eventID, "err", err)
	}
	count, err := s.store.ParticipantCount(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	if err := s.cache.Set(ctx, eventID, count); err != nil {
		s.logger.WarnContext(ctx, "participant count cache write", "event_id", eventID, "err", err)
	}
	return count, nil
}
