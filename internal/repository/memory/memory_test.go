package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

func seedEvent(t *testing.T, s *Store, players ...string) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	eventID, err := s.Events().Create(ctx, models.Event{Title: "Игровая", Places: 2, Active: true})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	var ids []int64
	for i, name := range players {
		id, err := s.Players().Create(ctx, models.Player{TgID: int64(100 + i), FirstName: name})
		if err != nil {
			t.Fatalf("create player: %v", err)
		}
		ids = append(ids, id)
	}
	return eventID, ids
}

func TestReserveIsFIFO(t *testing.T) {
	ctx := context.Background()
	s := New()
	eventID, ids := seedEvent(t, s, "a", "b", "c")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Events().AddReserve(ctx, eventID, ids[1], base.Add(time.Minute)); err != nil {
		t.Fatalf("AddReserve() error = %v", err)
	}
	if err := s.Events().AddReserve(ctx, eventID, ids[0], base); err != nil {
		t.Fatalf("AddReserve() error = %v", err)
	}
	if err := s.Events().AddReserve(ctx, eventID, ids[0], base); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("duplicate AddReserve() error = %v, want ErrConflict", err)
	}

	entry, err := s.Reserve().OldestReserveEntry(ctx, eventID)
	if err != nil || entry == nil {
		t.Fatalf("OldestReserveEntry() = %v, %v", entry, err)
	}
	if entry.Player.ID != ids[0] {
		t.Fatalf("oldest entry player = %d, want %d", entry.Player.ID, ids[0])
	}

	ok, err := s.Reserve().PromoteReserveEntry(ctx, *entry)
	if err != nil || !ok {
		t.Fatalf("PromoteReserveEntry() = %v, %v", ok, err)
	}
	ok, err = s.Reserve().PromoteReserveEntry(ctx, *entry)
	if err != nil || ok {
		t.Fatalf("second PromoteReserveEntry() = %v, %v, want false", ok, err)
	}
	count, _ := s.Reserve().CountEventPlayers(ctx, eventID)
	if count != 1 {
		t.Fatalf("event players = %d, want 1", count)
	}
}

func TestEventDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	eventID, ids := seedEvent(t, s, "a", "b")
	if err := s.Events().AddPlayer(ctx, eventID, ids[0]); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if err := s.Events().AddReserve(ctx, eventID, ids[1], time.Now()); err != nil {
		t.Fatalf("AddReserve() error = %v", err)
	}
	if err := s.Payments().CreateEventPayment(ctx, eventID, ids[0]); err != nil {
		t.Fatalf("CreateEventPayment() error = %v", err)
	}

	if err := s.Events().Delete(ctx, eventID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Events().Get(ctx, eventID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if _, err := s.Payments().GetEventPayment(ctx, eventID, ids[0]); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("payment survived delete: %v", err)
	}
	if entry, _ := s.Reserve().OldestReserveEntry(ctx, eventID); entry != nil {
		t.Fatalf("reserve survived delete: %+v", entry)
	}
	if err := s.Events().Delete(ctx, eventID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestConditionalFlips(t *testing.T) {
	ctx := context.Background()
	s := New()
	eventID, ids := seedEvent(t, s, "a")
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if ok, _ := s.Events().Deactivate(ctx, eventID); !ok {
		t.Fatal("first Deactivate() must flip")
	}
	if ok, _ := s.Events().Deactivate(ctx, eventID); ok {
		t.Fatal("second Deactivate() must not flip")
	}
	if ok, _ := s.Events().MarkReminded(ctx, eventID); !ok {
		t.Fatal("first MarkReminded() must flip")
	}
	if ok, _ := s.Events().MarkReminded(ctx, eventID); ok {
		t.Fatal("second MarkReminded() must not flip")
	}

	if err := s.Payments().CreateEventPayment(ctx, eventID, ids[0]); err != nil {
		t.Fatalf("CreateEventPayment() error = %v", err)
	}
	if result, _ := s.Payments().ConfirmEventPayment(ctx, eventID, ids[0], at); result.Confirmed {
		t.Fatal("confirm before claim must not flip")
	}
	if ok, _ := s.Payments().ClaimEventPayment(ctx, eventID, ids[0], at); !ok {
		t.Fatal("claim must flip")
	}
	if ok, _ := s.Payments().ClaimEventPayment(ctx, eventID, ids[0], at); ok {
		t.Fatal("repeated claim must not flip")
	}
	if result, _ := s.Payments().ConfirmEventPayment(ctx, eventID, ids[0], at); !result.Confirmed || result.Reserve {
		t.Fatalf("confirm after claim = %+v, want a seat", result)
	}
	if count, _ := s.Reserve().CountEventPlayers(ctx, eventID); count != 1 {
		t.Fatalf("event players = %d, want 1", count)
	}
	if ok, _ := s.Payments().RejectEventPayment(ctx, eventID, ids[0]); ok {
		t.Fatal("reject after confirm must not flip")
	}
}

func TestRejectedEventPaymentIsDeleted(t *testing.T) {
	ctx := context.Background()
	s := New()
	eventID, ids := seedEvent(t, s, "a")
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Payments().CreateEventPayment(ctx, eventID, ids[0]); err != nil {
		t.Fatalf("CreateEventPayment() error = %v", err)
	}
	if ok, _ := s.Payments().RejectEventPayment(ctx, eventID, ids[0]); ok {
		t.Fatal("reject before claim must not delete")
	}
	if ok, _ := s.Payments().ClaimEventPayment(ctx, eventID, ids[0], at); !ok {
		t.Fatal("claim must flip")
	}
	if ok, _ := s.Payments().RejectEventPayment(ctx, eventID, ids[0]); !ok {
		t.Fatal("reject after claim must delete")
	}
	if _, err := s.Payments().GetEventPayment(ctx, eventID, ids[0]); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("GetEventPayment() after reject error = %v, want ErrNotFound", err)
	}
}

func TestConfirmOnFullEventQueuesPayer(t *testing.T) {
	ctx := context.Background()
	s := New()
	eventID, ids := seedEvent(t, s, "a", "b", "c")
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range ids[:2] {
		if err := s.Events().AddPlayer(ctx, eventID, id); err != nil {
			t.Fatalf("AddPlayer() error = %v", err)
		}
	}
	if err := s.Payments().CreateEventPayment(ctx, eventID, ids[2]); err != nil {
		t.Fatalf("CreateEventPayment() error = %v", err)
	}
	if ok, _ := s.Payments().ClaimEventPayment(ctx, eventID, ids[2], at); !ok {
		t.Fatal("claim must flip")
	}

	result, err := s.Payments().ConfirmEventPayment(ctx, eventID, ids[2], at)
	if err != nil || !result.Confirmed || !result.Reserve {
		t.Fatalf("ConfirmEventPayment() = %+v, %v, want a reserve place", result, err)
	}
	entry, _ := s.Reserve().OldestReserveEntry(ctx, eventID)
	if entry == nil || entry.Player.ID != ids[2] {
		t.Fatalf("reserve head = %+v", entry)
	}
	if _, err := s.Payments().GetEventPayment(ctx, eventID, ids[2]); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("payment of a queued payer error = %v, want ErrNotFound", err)
	}
}

func TestTeamCreateAddsPaymentRow(t *testing.T) {
	ctx := context.Background()
	s := New()
	tournamentID, err := s.Tournaments().Create(ctx, models.Tournament{Title: "Кубок", MaxTeamCount: 2, Active: true})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	leader, err := s.Players().Create(ctx, models.Player{TgID: 1, FirstName: "a"})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	teamID, err := s.Teams().Create(ctx, models.Team{TournamentID: tournamentID, Title: "Альфа", LeaderID: leader})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	payment, err := s.Payments().GetTeamPayment(ctx, teamID)
	if err != nil {
		t.Fatalf("GetTeamPayment() error = %v", err)
	}
	if payment.TournamentID != tournamentID || payment.Paid {
		t.Fatalf("payment = %+v", payment)
	}
}
