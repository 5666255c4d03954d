package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/healping/internal/model"
)

var profileRowColumns = []string{
	"id", "role", "email", "full_name", "first_name", "last_name",
	"phone", "avatar_url", "clinic_id", "preferences", "created_at", "updated_at",
}

func strPtr(s string) *string {
	return &s
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock
}

func TestProfileRepository_GetProfileByID(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("doctor with clinic", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("u1").
			WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow(
				"u1", "doctor", strPtr("doc@example.com"), strPtr("Dr. House"), nil, nil,
				nil, nil, strPtr("c1"), json.RawMessage(`{"theme":"dark"}`), now, now,
			))

		profile, err := repo.GetProfileByID(context.Background(), "u1")
		require.NoError(t, err)

		assert.Equal(t, "u1", profile.ID)
		assert.Equal(t, model.RoleDoctor, profile.Role)
		assert.Equal(t, "doc@example.com", profile.Email)
		assert.Equal(t, "Dr. House", profile.FullName)
		assert.Empty(t, profile.Phone)
		require.NotNil(t, profile.ClinicID)
		assert.Equal(t, "c1", *profile.ClinicID)
		assert.JSONEq(t, `{"theme":"dark"}`, string(profile.Preferences))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetProfileByID(context.Background(), "missing")
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown role", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("u2").
			WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow(
				"u2", "nurse", nil, nil, nil, nil, nil, nil, nil, json.RawMessage(`{}`), now, now,
			))

		_, err := repo.GetProfileByID(context.Background(), "u2")
		require.ErrorIs(t, err, model.ErrInvalidRole)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("u3").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.GetProfileByID(context.Background(), "u3")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrNotFound)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestProfileRepository_CreateProfile(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("doctor joins default clinic", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM clinics WHERE name").
			WithArgs(defaultClinicName).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("c1"))
		mock.ExpectQuery("INSERT INTO profiles").
			WithArgs("u1", "doctor", "doc@example.com", "Dr. House", "", "", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow(
				"u1", "doctor", strPtr("doc@example.com"), strPtr("Dr. House"), nil, nil,
				nil, nil, strPtr("c1"), json.RawMessage(`{}`), now, now,
			))
		mock.ExpectExec("INSERT INTO doctors").
			WithArgs("u1", pgxmock.AnyArg(), defaultSpecialization).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		profile, err := repo.CreateProfile(context.Background(), model.Profile{
			ID:       "u1",
			Role:     model.RoleDoctor,
			Email:    "doc@example.com",
			FullName: "Dr. House",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleDoctor, profile.Role)
		assert.True(t, profile.HasClinic())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("patient gets patient record", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO profiles").
			WithArgs("u2", "patient", "pat@example.com", "", "Jane", "Doe", "+100", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow(
				"u2", "patient", strPtr("pat@example.com"), nil, strPtr("Jane"), strPtr("Doe"),
				strPtr("+100"), nil, nil, json.RawMessage(`{}`), now, now,
			))
		mock.ExpectExec("INSERT INTO patients").
			WithArgs("u2", "Jane Doe", "+100", "pat@example.com").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		profile, err := repo.CreateProfile(context.Background(), model.Profile{
			ID:        "u2",
			Role:      model.RolePatient,
			Email:     "pat@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
			Phone:     "+100",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RolePatient, profile.Role)
		assert.False(t, profile.HasClinic())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing profile", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO profiles").
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})
		mock.ExpectRollback()

		_, err := repo.CreateProfile(context.Background(), model.Profile{ID: "u3", Role: model.RolePatient})
		require.ErrorIs(t, err, model.ErrProfileExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("role record failure rolls back", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO profiles").
			WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow(
				"u4", "patient", nil, nil, nil, nil, nil, nil, nil, json.RawMessage(`{}`), now, now,
			))
		mock.ExpectExec("INSERT INTO patients").
			WillReturnError(errors.New("insert failed"))
		mock.ExpectRollback()

		_, err := repo.CreateProfile(context.Background(), model.Profile{ID: "u4", Role: model.RolePatient})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "patient record")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid role", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProfileRepository(mock)

		_, err := repo.CreateProfile(context.Background(), model.Profile{ID: "u5", Role: "nurse"})
		require.ErrorIs(t, err, model.ErrInvalidRole)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
