package services

import (
	"context"
	"errors"

	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"
)

type EventPage struct {
	Count  int64          `json:"count"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Items  []models.Event `json:"items"`
}

// EventCatalog is the read side of published events.
type EventCatalog struct {
	store repositories.Store
}

func NewEventCatalog(store repositories.Store) *EventCatalog {
	return &EventCatalog{store: store}
}

func (c *EventCatalog) List(ctx context.Context, filters types.EventQueryFilters) (*EventPage, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	events, count, err := c.store.Events().ListPublished(ctx, filters)
	if err != nil {
		return nil, Internal(err)
	}
	return &EventPage{Count: count, Limit: filters.Limit, Offset: filters.Offset, Items: events}, nil
}

func (c *EventCatalog) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	event, err := c.store.Events().FindPublishedBySlug(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return event, nil
}
