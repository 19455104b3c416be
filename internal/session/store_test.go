package session

import (
	"context"
	"testing"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository/memory"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
)

type wizard struct {
	Step  string `json:"step"`
	Title string `json:"title"`
}

func newStore() *Store {
	return NewStore(service.NewSessionService(memory.New().Sessions()))
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	nav := []models.NavigationEntry{{Action: "tournament", Params: map[string]string{"id": "3"}}}

	if err := store.Save(ctx, 42, "add_event", wizard{Step: "date", Title: "Игровая"}, nav); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got wizard
	var gotNav []models.NavigationEntry
	flow, err := store.Load(ctx, 42, &got, &gotNav)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if flow != "add_event" || got.Step != "date" || got.Title != "Игровая" {
		t.Fatalf("flow = %q, wizard = %+v", flow, got)
	}
	if len(gotNav) != 1 || gotNav[0].Params["id"] != "3" {
		t.Fatalf("nav = %+v", gotNav)
	}
}

func TestStoreMissingSession(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	nav := []models.NavigationEntry{{Action: "stale"}}

	var got wizard
	flow, err := store.Load(ctx, 7, &got, &nav)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if flow != "" || nav != nil || got.Step != "" {
		t.Fatalf("flow = %q, nav = %v, wizard = %+v", flow, nav, got)
	}
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	if err := store.Save(ctx, 42, "register", wizard{Step: "name"}, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(ctx, 42); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	flow, err := store.Load(ctx, 42, nil, nil)
	if err != nil || flow != "" {
		t.Fatalf("after Clear flow = %q, err = %v", flow, err)
	}
}

func TestStoreFlowWithoutState(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	if err := store.Save(ctx, 42, "profile", nil, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	var got wizard
	flow, err := store.Load(ctx, 42, &got, nil)
	if err != nil || flow != "profile" || got.Step != "" {
		t.Fatalf("flow = %q, wizard = %+v, err = %v", flow, got, err)
	}
}
