package profile_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/profile"
)

var columns = []string{
	"profile_id", "age_category", "safety_level", "jurisdiction", "allowed_categories", "blocked_categories",
}

func newRepo(t *testing.T) (*profile.Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return profile.NewRepository(sqlx.NewDb(db, "postgres"), 0), mock
}

func TestRepository_GetProfile(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT profile_id, age_category, safety_level").
		WithArgs("kid-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("kid-1", "under_13", "strict", "US", "{science,history}", "{violence}"))

	p, err := repo.GetProfile(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgeUnder13, p.AgeCategory)
	assert.Equal(t, domain.SafetyStrict, p.SafetyLevel)
	assert.Equal(t, domain.JurisdictionUS, p.Jurisdiction)
	assert.Equal(t, []string{"science", "history"}, p.AllowedCategories)
	assert.Equal(t, []string{"violence"}, p.BlockedCategories)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetProfile_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{name: "no rows", err: sql.ErrNoRows, wantNotFound: true},
		{name: "connection failure", err: sql.ErrConnDone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newRepo(t)
			mock.ExpectQuery("SELECT profile_id").WithArgs("missing").WillReturnError(tc.err)

			_, err := repo.GetProfile(context.Background(), "missing")
			require.Error(t, err)
			assert.Equal(t, tc.wantNotFound, errors.Is(err, domain.ErrProfileNotFound))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Upsert(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectExec("INSERT INTO safety_profiles").
		WithArgs("teen-1", domain.AgeUnder16, domain.SafetyModerate, domain.JurisdictionEU, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), domain.SafetyProfile{
		ProfileID:    "teen-1",
		AgeCategory:  domain.AgeUnder16,
		SafetyLevel:  domain.SafetyModerate,
		Jurisdiction: domain.JurisdictionEU,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	err = repo.Upsert(context.Background(), domain.SafetyProfile{ProfileID: "bad", AgeCategory: "toddler"})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestStatic(t *testing.T) {
	t.Parallel()

	s, err := profile.NewStatic([]domain.SafetyProfile{
		{ProfileID: "adult", AgeCategory: domain.AgeAdult, SafetyLevel: domain.SafetyMinimal},
	})
	require.NoError(t, err)

	p, err := s.GetProfile(context.Background(), "adult")
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyMinimal, p.SafetyLevel)

	_, err = s.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = profile.NewStatic([]domain.SafetyProfile{{ProfileID: "x", AgeCategory: domain.AgeAdult, SafetyLevel: "paranoid"}})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestChain(t *testing.T) {
	t.Parallel()

	first, err := profile.NewStatic([]domain.SafetyProfile{{ProfileID: "a", AgeCategory: domain.AgeAdult, SafetyLevel: domain.SafetyLenient}})
	require.NoError(t, err)

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT profile_id").WithArgs("b").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("b", "adult", "moderate", "", "{}", "{}"))
	mock.ExpectQuery("SELECT profile_id").WithArgs("c").WillReturnError(sql.ErrConnDone)

	chain := profile.Chain{first, repo}

	p, err := chain.GetProfile(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyLenient, p.SafetyLevel)

	p, err = chain.GetProfile(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyModerate, p.SafetyLevel)

	_, err = chain.GetProfile(context.Background(), "c")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrProfileNotFound)
}
