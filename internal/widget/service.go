package widget

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidSettings = errors.New("invalid widget settings")

var accentColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Settings controls the embeddable document submission widget for a tenant.
// Tenants without a stored row get the defaults.
type Settings struct {
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	Title       string    `db:"title" json:"title"`
	AccentColor string    `db:"accent_color" json:"accent_color"`
	Greeting    string    `db:"greeting" json:"greeting"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateParams carries the fields an admin may change. Nil means unchanged.
type UpdateParams struct {
	Enabled     *bool   `json:"enabled"`
	Title       *string `json:"title"`
	AccentColor *string `json:"accent_color"`
	Greeting    *string `json:"greeting"`
}

func defaultSettings(tenantID uuid.UUID) Settings {
	return Settings{
		TenantID:    tenantID,
		Enabled:     true,
		Title:       "Document portal",
		AccentColor: "#2563eb",
		Greeting:    "Submit a document for review.",
	}
}

// Service provides widget settings operations
type Service struct {
	pool *pgxpool.Pool
	gate *access.Gate
}

func NewService(pool *pgxpool.Pool, gate *access.Gate) *Service {
	return &Service{pool: pool, gate: gate}
}

// Get returns the tenant's widget settings, falling back to defaults when no
// row has been written yet. No gate: callers decide who may read.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	var st Settings
	query := `
		SELECT tenant_id, enabled, title, accent_color, greeting, updated_at
		FROM widget_settings
		WHERE tenant_id = $1
	`
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&st.TenantID, &st.Enabled, &st.Title, &st.AccentColor, &st.Greeting, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			def := defaultSettings(tenantID)
			return &def, nil
		}
		return nil, fmt.Errorf("failed to get widget settings: %w", err)
	}
	return &st, nil
}

// GetForAdmin returns the settings after an admin gate check.
func (s *Service) GetForAdmin(ctx context.Context, tenantID, actorUserID uuid.UUID) (*Settings, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageWidget); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID)
}

// Update applies the changed fields and returns the resulting settings.
// The write is an upsert so the first update also creates the row.
func (s *Service) Update(ctx context.Context, tenantID, actorUserID uuid.UUID, params UpdateParams) (*Settings, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageWidget); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	next := *current
	if params.Enabled != nil {
		next.Enabled = *params.Enabled
	}
	if params.Title != nil {
		next.Title = strings.TrimSpace(*params.Title)
	}
	if params.AccentColor != nil {
		next.AccentColor = strings.TrimSpace(*params.AccentColor)
	}
	if params.Greeting != nil {
		next.Greeting = strings.TrimSpace(*params.Greeting)
	}

	if next.Title == "" || len(next.Title) > 100 {
		return nil, fmt.Errorf("%w: title must be between 1 and 100 characters", ErrInvalidSettings)
	}
	if !accentColorPattern.MatchString(next.AccentColor) {
		return nil, fmt.Errorf("%w: accent_color must be a #rrggbb value", ErrInvalidSettings)
	}
	if len(next.Greeting) > 300 {
		return nil, fmt.Errorf("%w: greeting must be at most 300 characters", ErrInvalidSettings)
	}

	query := `
		INSERT INTO widget_settings (tenant_id, enabled, title, accent_color, greeting)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    title = EXCLUDED.title,
		    accent_color = EXCLUDED.accent_color,
		    greeting = EXCLUDED.greeting,
		    updated_at = NOW()
		RETURNING tenant_id, enabled, title, accent_color, greeting, updated_at
	`
	var st Settings
	err = s.pool.QueryRow(ctx, query,
		tenantID, next.Enabled, next.Title, next.AccentColor, next.Greeting,
	).Scan(&st.TenantID, &st.Enabled, &st.Title, &st.AccentColor, &st.Greeting, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update widget settings: %w", err)
	}

	return &st, nil
}
