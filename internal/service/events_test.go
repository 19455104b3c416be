package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

func TestEventsCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventsService(env.deps)
	future := env.now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		input CreateEventInput
		ok    bool
	}{
		{"valid", CreateEventInput{Title: "Тренировка", Date: future, Places: 12, MinUserCount: 6, Price: 500}, true},
		{"empty title", CreateEventInput{Title: " ", Date: future, Places: 12}, false},
		{"no places", CreateEventInput{Title: "Тренировка", Date: future}, false},
		{"min above places", CreateEventInput{Title: "Тренировка", Date: future, Places: 4, MinUserCount: 5}, false},
		{"in the past", CreateEventInput{Title: "Тренировка", Date: env.now.Add(-time.Hour), Places: 4}, false},
		{"negative price", CreateEventInput{Title: "Тренировка", Date: future, Places: 4, Price: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			if tt.ok && err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, models.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation", err)
			}
		})
	}
}

func TestEventsFreeEventReserveAndPromotion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewEventsService(env.deps)
	event := env.event(t, 1, 0)
	p1 := env.player(t, 1, 3, models.GenderMale)
	p2 := env.player(t, 2, 3, models.GenderFemale)
	p3 := env.player(t, 3, 3, models.GenderMale)

	for _, tc := range []struct {
		player models.Player
		want   RegistrationStatus
	}{
		{p1, RegistrationJoined},
		{p2, RegistrationReserve},
		{p3, RegistrationReserve},
	} {
		got, err := svc.Register(ctx, event.ID, tc.player)
		if err != nil {
			t.Fatalf("Register(%d) error = %v", tc.player.ID, err)
		}
		if got != tc.want {
			t.Fatalf("Register(%d) = %q, want %q", tc.player.ID, got, tc.want)
		}
	}

	promotion, err := svc.Cancel(ctx, event.ID, p1)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if promotion == nil || promotion.Player.ID != p2.ID {
		t.Fatalf("expected the first reserve player to be promoted, got %+v", promotion)
	}
	if !env.notifier.received(p2.TgID, "основной состав") {
		t.Fatalf("promoted player not notified: %v", env.notifier.to(p2.TgID))
	}

	loaded, err := svc.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(loaded.Players) != 1 || loaded.Players[0].ID != p2.ID {
		t.Fatalf("players = %+v", loaded.Players)
	}
	if len(loaded.Reserve) != 1 || loaded.Reserve[0].Player.ID != p3.ID {
		t.Fatalf("reserve = %+v", loaded.Reserve)
	}

	// leaving the reserve frees nothing
	promotion, err = svc.Cancel(ctx, event.ID, p3)
	if err != nil || promotion != nil {
		t.Fatalf("Cancel(reserve) = %+v, %v", promotion, err)
	}
}

func TestEventsRegisterRejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewEventsService(env.deps)
	player := env.player(t, 1, 2, models.GenderMale)

	closed := env.event(t, 4, 0)
	if _, err := env.store.Events().Deactivate(ctx, closed.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if _, err := svc.Register(ctx, closed.ID, player); !errors.Is(err, models.ErrInactive) {
		t.Fatalf("inactive event error = %v", err)
	}

	open := env.event(t, 4, 0)
	if _, err := svc.Register(ctx, open.ID, player); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, open.ID, player); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("duplicate registration error = %v", err)
	}

	strong := models.Event{Title: "Хард", Date: env.now.Add(time.Hour), Places: 4, Active: true, Level: 5}
	id, err := env.store.Events().Create(ctx, strong)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err := svc.Register(ctx, id, player); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("low level error = %v", err)
	}
}

func TestEventsPaymentRaceMovesToReserve(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	events := NewEventsService(env.deps)
	payments := NewPaymentsService(env.deps)
	event := env.event(t, 1, 500)
	p1 := env.player(t, 1, 3, models.GenderMale)
	p2 := env.player(t, 2, 3, models.GenderMale)

	for _, p := range []models.Player{p1, p2} {
		status, err := events.Register(ctx, event.ID, p)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if status != RegistrationPending {
			t.Fatalf("status = %q, want pending", status)
		}
		if err := payments.ClaimEvent(ctx, event.ID, p); err != nil {
			t.Fatalf("ClaimEvent() error = %v", err)
		}
	}
	if err := payments.ClaimEvent(ctx, event.ID, p1); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second claim error = %v", err)
	}
	pending, err := payments.PendingEvents(ctx)
	if err != nil || len(pending) != 2 {
		t.Fatalf("PendingEvents() = %d, %v", len(pending), err)
	}

	outcome, err := payments.ConfirmEvent(ctx, event.ID, p1.ID, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmEvent(p1) error = %v", err)
	}
	if outcome.Reserve || outcome.RefundRequired {
		t.Fatalf("first confirmation outcome = %+v", outcome)
	}

	outcome, err = payments.ConfirmEvent(ctx, event.ID, p2.ID, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmEvent(p2) error = %v", err)
	}
	if !outcome.Reserve || !outcome.RefundRequired {
		t.Fatalf("second confirmation outcome = %+v", outcome)
	}
	if !env.notifier.received(adminTgID, "возврат") {
		t.Fatal("admin was not asked to refund")
	}

	loaded, err := events.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(loaded.Players) != 1 || loaded.Players[0].ID != p1.ID {
		t.Fatalf("players = %+v", loaded.Players)
	}
	if !loaded.InReserve(p2.ID) {
		t.Fatal("late payer must wait in the reserve")
	}
}

func TestEventsRejectPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	events := NewEventsService(env.deps)
	payments := NewPaymentsService(env.deps)
	event := env.event(t, 4, 500)
	p := env.player(t, 1, 3, models.GenderMale)

	if _, err := events.Register(ctx, event.ID, p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := payments.RejectEvent(ctx, event.ID, p.ID, adminTgID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("reject before claim error = %v", err)
	}
	if err := payments.ClaimEvent(ctx, event.ID, p); err != nil {
		t.Fatalf("ClaimEvent() error = %v", err)
	}
	if err := payments.RejectEvent(ctx, event.ID, p.ID, adminTgID); err != nil {
		t.Fatalf("RejectEvent() error = %v", err)
	}
	if !env.notifier.received(p.TgID, "не найдена") {
		t.Fatal("player not told about the rejection")
	}
	if _, err := env.store.Payments().GetEventPayment(ctx, event.ID, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("payment after rejection error = %v, want ErrNotFound", err)
	}
	if err := payments.ClaimEvent(ctx, event.ID, p); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("claim without a payment error = %v", err)
	}

	// a rejected player may sign up again
	status, err := events.Register(ctx, event.ID, p)
	if err != nil {
		t.Fatalf("Register() after reject error = %v", err)
	}
	if status != RegistrationPending {
		t.Fatalf("status = %q, want %q", status, RegistrationPending)
	}
	if err := payments.ClaimEvent(ctx, event.ID, p); err != nil {
		t.Fatalf("ClaimEvent() after new registration error = %v", err)
	}
}

func TestEventsNotificationFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewEventsService(env.deps)
	event := env.event(t, 1, 0)
	p1 := env.player(t, 1, 3, models.GenderMale)
	p2 := env.player(t, 2, 3, models.GenderMale)
	env.notifier.fail[p2.TgID] = true

	if _, err := svc.Register(ctx, event.ID, p1); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, event.ID, p2); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	promotion, err := svc.Cancel(ctx, event.ID, p1)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if promotion == nil || promotion.Player.ID != p2.ID {
		t.Fatalf("promotion = %+v", promotion)
	}
	if len(env.logger.errors) != 1 || !errors.Is(env.logger.errors[0], errBlocked) {
		t.Fatalf("failed delivery not logged: %v", env.logger.errors)
	}
}

func TestEventsDeleteNotifiesEveryone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewEventsService(env.deps)
	event := env.event(t, 1, 0)
	p1 := env.player(t, 1, 3, models.GenderMale)
	p2 := env.player(t, 2, 3, models.GenderMale)
	for _, p := range []models.Player{p1, p2} {
		if _, err := svc.Register(ctx, event.ID, p); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	if err := svc.Delete(ctx, event.ID, adminTgID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, p := range []models.Player{p1, p2} {
		if !env.notifier.received(p.TgID, "отменено") {
			t.Fatalf("player %d not notified", p.TgID)
		}
	}
	if _, err := svc.Get(ctx, event.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
}
