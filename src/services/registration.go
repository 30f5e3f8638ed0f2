package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"

	"go.uber.org/zap"
)

// RegistrationCoordinator decides who may hold a seat at an event.
type RegistrationCoordinator struct {
	store    repositories.Store
	notifier Notifier
	now      func() time.Time
}

func NewRegistrationCoordinator(store repositories.Store, notifier Notifier) *RegistrationCoordinator {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &RegistrationCoordinator{store: store, notifier: notifier, now: time.Now}
}

// With returns a coordinator bound to store, typically a transaction.
func (c *RegistrationCoordinator) With(store repositories.Store) *RegistrationCoordinator {
	return &RegistrationCoordinator{store: store, notifier: c.notifier, now: c.now}
}

// Register checks the event rules with the event row locked and returns the user's registration.
// Free events are confirmed immediately, paid events stay pending until payment.
func (c *RegistrationCoordinator) Register(ctx context.Context, eventID, userID uint) (*models.Registration, error) {
	var (
		registration *models.Registration
		event        *models.Event
		confirmed    bool
	)
	err := c.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		event, err = tx.Events().FindByIDForUpdate(ctx, eventID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := c.checkEvent(ctx, tx, event); err != nil {
			return err
		}
		registration, err = c.getOrCreatePending(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if event.IsFree() && registration.Status == types.REGISTRATION_PENDING {
			if _, err := tx.Registrations().Transition(ctx, registration.ID, types.REGISTRATION_PENDING, types.REGISTRATION_CONFIRMED); err != nil {
				return fmt.Errorf("confirm registration: %w", err)
			}
			registration.Status = types.REGISTRATION_CONFIRMED
			confirmed = true
		}
		return nil
	})
	if err != nil {
		var se *ServiceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, Internal(err)
	}
	registration.Event = event
	if confirmed {
		c.notifyConfirmed(ctx, registration, event)
	}
	return registration, nil
}

func (c *RegistrationCoordinator) checkEvent(ctx context.Context, tx repositories.Store, event *models.Event) error {
	if event.Capacity != nil && *event.Capacity <= 0 {
		return ErrCapacityFull
	}
	now := c.now()
	if event.RegistrationEndDate != nil && now.After(*event.RegistrationEndDate) {
		return ErrRegistrationClosed
	}
	if event.RegistrationStartDate != nil && now.Before(*event.RegistrationStartDate) {
		return ErrRegistrationNotOpen
	}
	if event.Capacity != nil {
		attendees, err := tx.Events().CountConfirmedRegistrations(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("count attendees: %w", err)
		}
		if attendees >= *event.Capacity {
			return ErrCapacityFull
		}
	}
	return nil
}

func (c *RegistrationCoordinator) getOrCreatePending(ctx context.Context, tx repositories.Store, eventID, userID uint) (*models.Registration, error) {
	existing, err := tx.Registrations().FindByEventAndUser(ctx, eventID, userID)
	if err == nil {
		switch existing.Status {
		case types.REGISTRATION_CONFIRMED, types.REGISTRATION_ATTENDED:
			return nil, ErrAlreadyRegistered
		case types.REGISTRATION_PENDING:
			return existing, nil
		}
		// a cancelled row that was never soft-deleted
		if err := tx.Registrations().HardDelete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("drop cancelled registration: %w", err)
		}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find registration: %w", err)
	}

	deleted, err := tx.Registrations().FindDeletedByEventAndUser(ctx, eventID, userID)
	if err == nil {
		if err := tx.Registrations().Restore(ctx, deleted.ID, types.REGISTRATION_PENDING); err != nil {
			return nil, fmt.Errorf("restore registration: %w", err)
		}
		return tx.Registrations().FindByEventAndUser(ctx, eventID, userID)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find cancelled registration: %w", err)
	}

	registration := &models.Registration{EventID: eventID, UserID: userID, Status: types.REGISTRATION_PENDING}
	if err := tx.Registrations().Create(ctx, registration); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return registration, nil
}

// Confirm moves a pending registration to confirmed. Already confirmed is a no-op.
func (c *RegistrationCoordinator) Confirm(ctx context.Context, registration *models.Registration) error {
	if registration.Status == types.REGISTRATION_CONFIRMED {
		return nil
	}
	applied, err := c.store.Registrations().Transition(ctx, registration.ID, types.REGISTRATION_PENDING, types.REGISTRATION_CONFIRMED)
	if err != nil {
		return fmt.Errorf("confirm registration: %w", err)
	}
	if !applied {
		current, err := c.store.Registrations().FindByID(ctx, registration.ID)
		if err != nil {
			return fmt.Errorf("reload registration: %w", err)
		}
		if current.Status != types.REGISTRATION_CONFIRMED {
			return fmt.Errorf("registration %d is %s", registration.ID, current.Status)
		}
	}
	registration.Status = types.REGISTRATION_CONFIRMED
	return nil
}

// ConfirmPending confirms the user's registration after payment. It returns
// ErrNoPendingRegistration when there is nothing to confirm.
func (c *RegistrationCoordinator) ConfirmPending(ctx context.Context, eventID, userID uint) (*models.Registration, error) {
	registration, err := c.store.Registrations().FindByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoPendingRegistration
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	switch registration.Status {
	case types.REGISTRATION_CONFIRMED, types.REGISTRATION_ATTENDED:
		return registration, nil
	case types.REGISTRATION_PENDING:
		if err := c.Confirm(ctx, registration); err != nil {
			return nil, err
		}
		return registration, nil
	default:
		return nil, ErrNoPendingRegistration
	}
}

// Cancel soft-deletes the registration. Event capacity is left as is.
func (c *RegistrationCoordinator) Cancel(ctx context.Context, registrationID, userID uint) error {
	if _, err := c.Get(ctx, registrationID, userID); err != nil {
		return err
	}
	if err := c.store.Registrations().Cancel(ctx, registrationID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return Internal(err)
	}
	return nil
}

func (c *RegistrationCoordinator) Get(ctx context.Context, registrationID, userID uint) (*models.Registration, error) {
	registration, err := c.store.Registrations().FindByID(ctx, registrationID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && registration.UserID != userID) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return registration, nil
}

func (c *RegistrationCoordinator) ListForUser(ctx context.Context, userID uint) ([]models.Registration, error) {
	registrations, err := c.store.Registrations().ListForUser(ctx, userID)
	if err != nil {
		return nil, Internal(err)
	}
	return registrations, nil
}

func (c *RegistrationCoordinator) notifyConfirmed(ctx context.Context, registration *models.Registration, event *models.Event) {
	n := types.Notification{
		Kind:      types.NOTIFY_REGISTRATION_CONFIRMED,
		UserID:    registration.UserID,
		EventID:   event.ID,
		EventName: event.Title,
		TicketID:  registration.TicketID.String(),
	}
	if user, err := c.store.Users().FindByID(ctx, registration.UserID); err == nil {
		n.Email = user.Email
		n.Name = user.FullName()
	} else {
		zap.L().Warn("could not load user for notification", zap.Uint("user_id", registration.UserID), zap.Error(err))
	}
	c.notifier.Enqueue(n)
}
