package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Players --------------------------------------------------------------------

type PlayersService interface {
	Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error)
	Get(ctx context.Context, id int64) (*models.Player, error)
	GetByTgID(ctx context.Context, tgID int64) (*models.Player, error)
	List(ctx context.Context, page, perPage int) ([]models.Player, bool, error)
	SetGender(ctx context.Context, id int64, gender models.Gender) error
	SetLevel(ctx context.Context, id int64, level int) error
}

type RegisterPlayerInput struct {
	TgID     int64
	Username string
	FullName string
}

type playersService struct {
	repo   repository.PlayersRepository
	levels func(level int) bool
}

// NewPlayersService builds the service; validLevel reports whether an admin
// may assign the level.
func NewPlayersService(repo repository.PlayersRepository, validLevel func(level int) bool) PlayersService {
	return &playersService{repo: repo, levels: validLevel}
}

// ParseFullName splits "Имя Фамилия" into two words of letters, each at
// least two characters long.
func ParseFullName(fullName string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(fullName), " ")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("full name: %w", models.ErrValidation)
	}
	for _, part := range parts {
		if utf8.RuneCountInString(part) < 2 {
			return "", "", fmt.Errorf("full name: %w", models.ErrValidation)
		}
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return "", "", fmt.Errorf("full name: %w", models.ErrValidation)
			}
		}
	}
	return parts[0], parts[1], nil
}

func (s *playersService) Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error) {
	if input.TgID == 0 {
		return nil, fmt.Errorf("tg_id: %w", models.ErrValidation)
	}
	first, last, err := ParseFullName(input.FullName)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByTgID(ctx, input.TgID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("player %d: %w", input.TgID, models.ErrConflict)
	}

	player := models.Player{
		TgID:      input.TgID,
		Username:  input.Username,
		FirstName: first,
		LastName:  last,
	}
	id, err := s.repo.Create(ctx, player)
	if err != nil {
		return nil, err
	}
	player.ID = id
	return &player, nil
}

func (s *playersService) Get(ctx context.Context, id int64) (*models.Player, error) {
	return s.repo.Get(ctx, id)
}

func (s *playersService) GetByTgID(ctx context.Context, tgID int64) (*models.Player, error) {
	return s.repo.GetByTgID(ctx, tgID)
}

func (s *playersService) List(ctx context.Context, page, perPage int) ([]models.Player, bool, error) {
	pagination := models.NewPagination(page, perPage)
	items, err := s.repo.List(ctx, pagination)
	if err != nil {
		return nil, false, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, false, err
	}
	next := pagination.Offset+len(items) < total
	return items, next, nil
}

func (s *playersService) SetGender(ctx context.Context, id int64, gender models.Gender) error {
	if !gender.Valid() {
		return fmt.Errorf("gender: %w", models.ErrValidation)
	}
	return s.repo.Update(ctx, id, models.PlayerPatch{Gender: &gender})
}

func (s *playersService) SetLevel(ctx context.Context, id int64, level int) error {
	if s.levels != nil && !s.levels(level) {
		return fmt.Errorf("level %d: %w", level, models.ErrValidation)
	}
	return s.repo.Update(ctx, id, models.PlayerPatch{Level: &level})
}

// Sessions -------------------------------------------------------------------

type SessionService interface {
	Get(ctx context.Context, tgID int64) (*models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, tgID int64) error
}

type sessionService struct {
	repo repository.SessionsRepository
}

func NewSessionService(repo repository.SessionsRepository) SessionService {
	return &sessionService{repo: repo}
}

func (s *sessionService) Get(ctx context.Context, tgID int64) (*models.Session, error) {
	session, err := s.repo.Get(ctx, tgID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Save(ctx context.Context, session models.Session) error {
	return s.repo.Upsert(ctx, session)
}

func (s *sessionService) Delete(ctx context.Context, tgID int64) error {
	return s.repo.Delete(ctx, tgID)
}

func playerTgIDs(players []models.Player) []int64 {
	ids := make([]int64, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.TgID)
	}
	return ids
}
