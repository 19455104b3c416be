package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

// RegistrationStatus is where a sign-up ended up.
type RegistrationStatus string

const (
	// RegistrationPending means a place is held until the payment is confirmed.
	RegistrationPending RegistrationStatus = "payment_pending"
	RegistrationJoined  RegistrationStatus = "joined"
	RegistrationReserve RegistrationStatus = "reserve"
)

type EventsService interface {
	Create(ctx context.Context, input CreateEventInput) (int64, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	Register(ctx context.Context, eventID int64, player models.Player) (RegistrationStatus, error)
	Cancel(ctx context.Context, eventID int64, player models.Player) (*roster.Promotion, error)
	Delete(ctx context.Context, eventID, adminID int64) error
}

type CreateEventInput struct {
	Type         string
	Title        string
	Date         time.Time
	Places       int
	MinUserCount int
	Level        int
	Price        int
}

type eventsService struct {
	Deps
}

func NewEventsService(deps Deps) EventsService {
	return &eventsService{Deps: deps}
}

func (s *eventsService) Create(ctx context.Context, input CreateEventInput) (int64, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return 0, fmt.Errorf("title: %w", models.ErrValidation)
	}
	if input.Places <= 0 {
		return 0, fmt.Errorf("places: %w", models.ErrValidation)
	}
	if input.MinUserCount < 0 || input.MinUserCount > input.Places {
		return 0, fmt.Errorf("min_user_count: %w", models.ErrValidation)
	}
	if input.Price < 0 {
		return 0, fmt.Errorf("price: %w", models.ErrValidation)
	}
	if !input.Date.After(s.now()) {
		return 0, fmt.Errorf("date: %w", models.ErrValidation)
	}
	return s.Events.Create(ctx, models.Event{
		Type:         input.Type,
		Title:        input.Title,
		Date:         input.Date,
		Places:       input.Places,
		MinUserCount: input.MinUserCount,
		Active:       true,
		Level:        input.Level,
		Price:        input.Price,
	})
}

func (s *eventsService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	return s.Events.List(ctx, filter)
}

func (s *eventsService) Get(ctx context.Context, id int64) (*models.Event, error) {
	return s.Events.Get(ctx, id)
}

func (s *eventsService) Register(ctx context.Context, eventID int64, player models.Player) (RegistrationStatus, error) {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return "", err
	}
	if !event.Active || !s.now().Before(event.Date) {
		return "", fmt.Errorf("event %d: %w", eventID, models.ErrInactive)
	}
	if event.HasPlayer(player.ID) || event.InReserve(player.ID) {
		return "", fmt.Errorf("player %d in event %d: %w", player.ID, eventID, models.ErrConflict)
	}
	if event.Level > 0 && player.LevelValue() < event.Level {
		return "", fmt.Errorf("level: %w", models.ErrValidation)
	}

	payment, err := s.Payments.GetEventPayment(ctx, eventID, player.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return "", err
	}
	if payment != nil {
		return "", fmt.Errorf("payment for event %d: %w", eventID, models.ErrConflict)
	}

	if len(event.Players) >= event.Places {
		if err := s.Events.AddReserve(ctx, eventID, player.ID, s.now()); err != nil {
			return "", err
		}
		s.logInfo("reserve", "event", eventID, player.TgID, "ok")
		return RegistrationReserve, nil
	}
	if event.Price == 0 {
		if err := s.Events.AddPlayer(ctx, eventID, player.ID); err != nil {
			return "", err
		}
		s.logInfo("register", "event", eventID, player.TgID, "ok")
		return RegistrationJoined, nil
	}
	if err := s.Payments.CreateEventPayment(ctx, eventID, player.ID); err != nil {
		return "", err
	}
	s.logInfo("register", "event", eventID, player.TgID, "payment_pending")
	return RegistrationPending, nil
}

// Cancel removes the player from the event, its reserve or a pending
// payment. A freed place is offered to the reserve right away.
func (s *eventsService) Cancel(ctx context.Context, eventID int64, player models.Player) (*roster.Promotion, error) {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	switch {
	case event.InReserve(player.ID):
		if _, err := s.Events.RemoveReserve(ctx, eventID, player.ID); err != nil {
			return nil, err
		}
		s.logInfo("cancel_reserve", "event", eventID, player.TgID, "ok")
		return nil, nil

	case event.HasPlayer(player.ID):
		removed, err := s.Events.RemovePlayer(ctx, eventID, player.ID)
		if err != nil {
			return nil, err
		}
		if err := s.Payments.DeleteEventPayment(ctx, eventID, player.ID); err != nil {
			return nil, err
		}
		s.logInfo("cancel", "event", eventID, player.TgID, "ok")
		if !removed {
			return nil, nil
		}
		return s.promote(ctx, event)
	}

	payment, err := s.Payments.GetEventPayment(ctx, eventID, player.ID)
	if err != nil {
		return nil, err
	}
	if payment.PaidConfirm {
		return nil, fmt.Errorf("payment for event %d: %w", eventID, models.ErrConflict)
	}
	if err := s.Payments.DeleteEventPayment(ctx, eventID, player.ID); err != nil {
		return nil, err
	}
	s.logInfo("cancel_payment", "event", eventID, player.TgID, "ok")
	return nil, nil
}

func (s *eventsService) promote(ctx context.Context, event *models.Event) (*roster.Promotion, error) {
	promotion, err := s.Promoter.PromotePlayer(ctx, event)
	if err != nil {
		s.logError(err, "promote", "event", event.ID, 0)
		return nil, err
	}
	if promotion == nil {
		return nil, nil
	}
	s.logInfo("promote", "event", event.ID, promotion.Player.TgID, "ok")
	text := fmt.Sprintf("Освободилось место на «%s» %s. Вы переведены из резерва в основной состав.",
		event.Title, s.formatDate(event.Date))
	s.deliver([]notify.Result{s.Notifier.Notify(ctx, promotion.Player.TgID, text)}, "notify_promote", "event", event.ID)
	return promotion, nil
}

func (s *eventsService) Delete(ctx context.Context, eventID, adminID int64) error {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.Events.Delete(ctx, eventID); err != nil {
		return err
	}
	s.logInfo("delete", "event", eventID, adminID, "ok")

	recipients := playerTgIDs(event.Players)
	for _, entry := range event.Reserve {
		recipients = append(recipients, entry.Player.TgID)
	}
	text := fmt.Sprintf("Мероприятие «%s» %s отменено администратором.", event.Title, s.formatDate(event.Date))
	s.deliver(s.Notifier.NotifyMany(ctx, recipients, text), "notify_delete", "event", eventID)
	return nil
}
