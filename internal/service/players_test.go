package service

import (
	"context"
	"errors"
	"testing"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository/memory"
)

func TestParseFullName(t *testing.T) {
	tests := []struct {
		input     string
		first     string
		last      string
		wantError bool
	}{
		{input: "Иван Иванов", first: "Иван", last: "Иванов"},
		{input: "  Anna Smith ", first: "Anna", last: "Smith"},
		{input: "Иван", wantError: true},
		{input: "Иван Иванович Иванов", wantError: true},
		{input: "И Иванов", wantError: true},
		{input: "Иван Ив4нов", wantError: true},
		{input: "Иван-Петр Иванов", wantError: true},
		{input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			first, last, err := ParseFullName(tt.input)
			if tt.wantError {
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if first != tt.first || last != tt.last {
				t.Fatalf("got %q %q, want %q %q", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestPlayersRegister(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewPlayersService(store.Players(), nil)

	player, err := svc.Register(ctx, RegisterPlayerInput{TgID: 42, Username: "ivan", FullName: "Иван Иванов"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if player.ID == 0 || player.FirstName != "Иван" || player.LastName != "Иванов" {
		t.Fatalf("unexpected player %+v", player)
	}
	if player.Level != nil || player.Gender != nil {
		t.Fatal("new player must start without level and gender")
	}

	if _, err := svc.Register(ctx, RegisterPlayerInput{TgID: 42, FullName: "Пётр Петров"}); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second registration error = %v, want conflict", err)
	}
	if _, err := svc.Register(ctx, RegisterPlayerInput{TgID: 43, FullName: "Пётр"}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("bad name error = %v, want validation", err)
	}

	got, err := svc.GetByTgID(ctx, 42)
	if err != nil || got.ID != player.ID {
		t.Fatalf("GetByTgID() = %+v, %v", got, err)
	}
}

func TestPlayersProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewPlayersService(store.Players(), func(level int) bool { return level >= 1 && level <= 7 })

	player, err := svc.Register(ctx, RegisterPlayerInput{TgID: 7, FullName: "Анна Смирнова"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.SetGender(ctx, player.ID, models.Gender("other")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("SetGender(other) error = %v", err)
	}
	if err := svc.SetGender(ctx, player.ID, models.GenderFemale); err != nil {
		t.Fatalf("SetGender() error = %v", err)
	}
	if err := svc.SetLevel(ctx, player.ID, 9); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("SetLevel(9) error = %v", err)
	}
	if err := svc.SetLevel(ctx, player.ID, 4); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	got, err := svc.Get(ctx, player.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.LevelValue() != 4 || got.Gender == nil || *got.Gender != models.GenderFemale {
		t.Fatalf("profile not saved: %+v", got)
	}
}

func TestPlayersListPagination(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewPlayersService(store.Players(), nil)
	names := []string{"Анна Арбузова", "Борис Быков", "Вера Волкова"}
	for i, name := range names {
		if _, err := svc.Register(ctx, RegisterPlayerInput{TgID: int64(i + 1), FullName: name}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	page, next, err := svc.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 || !next {
		t.Fatalf("first page = %d items, next = %v", len(page), next)
	}
	page, next, err = svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 || next {
		t.Fatalf("second page = %d items, next = %v", len(page), next)
	}
}

func TestSessionServiceMissingIsNil(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(memory.New().Sessions())

	session, err := svc.Get(ctx, 1)
	if err != nil || session != nil {
		t.Fatalf("Get() = %+v, %v; want nil, nil", session, err)
	}
	flow := "register"
	if err := svc.Save(ctx, models.Session{TgID: 1, CurrentFlow: &flow}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	session, err = svc.Get(ctx, 1)
	if err != nil || session == nil || *session.CurrentFlow != flow {
		t.Fatalf("Get() = %+v, %v", session, err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}
