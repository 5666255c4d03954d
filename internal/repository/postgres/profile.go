package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/healping/internal/model"
)

var (
	_ model.ProfileStore  = (*ProfileRepository)(nil)
	_ model.ProfileWriter = (*ProfileRepository)(nil)
)

const (
	defaultClinicName     = "Default Medical Practice"
	defaultSpecialization = "General Practice"
	uniqueViolation       = "23505"
)

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{
		db: db,
	}
}

const profileColumns = `id, role, email, full_name, first_name, last_name, phone, avatar_url, clinic_id, preferences, created_at, updated_at`

func (r *ProfileRepository) GetProfileByID(ctx context.Context, id string) (model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// CreateProfile inserts the profile together with its role record.
// Doctors join the default clinic, patients start without one.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if !profile.Role.Valid() {
		return model.Profile{}, fmt.Errorf("%w: %q", model.ErrInvalidRole, profile.Role)
	}
	preferences := profile.Preferences
	if len(preferences) == 0 {
		preferences = json.RawMessage(`{}`)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var clinicID *string
	if profile.Role == model.RoleDoctor {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM clinics WHERE name = $1`, defaultClinicName).Scan(&id)
		switch {
		case err == nil:
			clinicID = &id
		case !errors.Is(err, pgx.ErrNoRows):
			return model.Profile{}, fmt.Errorf("failed to get default clinic: %w", err)
		}
	}

	query := `
		INSERT INTO profiles (id, role, email, full_name, first_name, last_name, phone, avatar_url, clinic_id, preferences)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10)
		RETURNING ` + profileColumns

	saved, err := scanProfile(tx.QueryRow(ctx, query,
		profile.ID, string(profile.Role), profile.Email, profile.FullName,
		profile.FirstName, profile.LastName, profile.Phone, profile.AvatarURL,
		clinicID, preferences,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Profile{}, model.ErrProfileExists
		}
		return model.Profile{}, fmt.Errorf("failed to insert profile: %w", err)
	}

	switch profile.Role {
	case model.RoleDoctor:
		_, err = tx.Exec(ctx,
			`INSERT INTO doctors (profile_id, clinic_id, specialization) VALUES ($1, $2, $3)`,
			saved.ID, clinicID, defaultSpecialization)
	case model.RolePatient:
		_, err = tx.Exec(ctx,
			`INSERT INTO patients (profile_id, full_name, phone, email) VALUES ($1, $2, $3, NULLIF($4, ''))`,
			saved.ID, saved.DisplayName(), profile.Phone, profile.Email)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to insert %s record: %w", profile.Role, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Profile{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return saved, nil
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var (
		p                                                       model.Profile
		role                                                    string
		email, fullName, firstName, lastName, phone, avatarURL *string
	)
	err := row.Scan(
		&p.ID, &role, &email, &fullName, &firstName, &lastName,
		&phone, &avatarURL, &p.ClinicID, &p.Preferences, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Profile{}, err
	}

	p.Role, err = model.ParseRole(role)
	if err != nil {
		return model.Profile{}, err
	}
	p.Email = deref(email)
	p.FullName = deref(fullName)
	p.FirstName = deref(firstName)
	p.LastName = deref(lastName)
	p.Phone = deref(phone)
	p.AvatarURL = deref(avatarURL)

	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
