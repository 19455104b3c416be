// Package session persists multi-step dialog state between Telegram updates.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
)

type Store struct {
	sessions service.SessionService
}

func NewStore(sessions service.SessionService) *Store {
	return &Store{sessions: sessions}
}

type persistedSession struct {
	Wizard json.RawMessage          `json:"wizard,omitempty"`
	Nav    []models.NavigationEntry `json:"nav,omitempty"`
}

// Load returns the active flow name, or "" when the user has none, and
// decodes the wizard state into wizardOut.
func (s *Store) Load(ctx context.Context, tgID int64, wizardOut any, navOut *[]models.NavigationEntry) (string, error) {
	if navOut != nil {
		*navOut = nil
	}
	session, err := s.sessions.Get(ctx, tgID)
	if err != nil || session == nil {
		return "", err
	}
	flow := ""
	if session.CurrentFlow != nil {
		flow = *session.CurrentFlow
	}
	if len(session.FlowState) == 0 {
		return flow, nil
	}

	var envelope persistedSession
	if err := json.Unmarshal(session.FlowState, &envelope); err != nil {
		return "", fmt.Errorf("decode session of %d: %w", tgID, err)
	}
	if wizardOut != nil && len(envelope.Wizard) > 0 {
		if err := json.Unmarshal(envelope.Wizard, wizardOut); err != nil {
			return "", fmt.Errorf("decode wizard of %d: %w", tgID, err)
		}
	}
	if navOut != nil && len(envelope.Nav) > 0 {
		copied := make([]models.NavigationEntry, len(envelope.Nav))
		copy(copied, envelope.Nav)
		*navOut = copied
	}
	return flow, nil
}

func (s *Store) Save(ctx context.Context, tgID int64, flow string, wizardState any, nav []models.NavigationEntry) error {
	var payload []byte
	if wizardState != nil || len(nav) > 0 {
		env := persistedSession{Nav: nav}
		if wizardState != nil {
			buf, err := json.Marshal(wizardState)
			if err != nil {
				return err
			}
			env.Wizard = buf
		}
		buf, err := json.Marshal(env)
		if err != nil {
			return err
		}
		payload = buf
	}
	var flowName *string
	if flow != "" {
		flowName = &flow
	}
	return s.sessions.Save(ctx, models.Session{
		TgID:        tgID,
		CurrentFlow: flowName,
		FlowState:   payload,
	})
}

func (s *Store) Clear(ctx context.Context, tgID int64) error {
	return s.sessions.Delete(ctx, tgID)
}
