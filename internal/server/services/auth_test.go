package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/observability"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: time.Hour,
	}
}

type fixture struct {
	svc     *AuthService
	rm      *repomanager.MemoryRepositoryManager
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewAuthService(nil, rm, auth.NewBcryptHasher(bcrypt.MinCost), testConfig(), metrics, logging.Nop{})
	return &fixture{svc: svc, rm: rm, metrics: metrics}
}

func (f *fixture) seed(t *testing.T, u *models.User, password string) *models.User {
	t.Helper()
	if password != "" {
		h, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash(password)
		require.NoError(t, err)
		u.HashedPassword = &h
	}
	created, err := f.rm.Users(nil).Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func (f *fixture) logins(outcome string) float64 {
	return testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(outcome))
}

// --- Login / Session ---

func TestLogin_EndToEnd_Admin(t *testing.T) {
	f := newFixture(t)
	user := f.seed(t, &models.User{Email: "a@x.com", Name: "Alice", Role: models.RoleAdmin}, "secret")

	raw, err := f.svc.Login(context.Background(), auth.Credentials{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	token, err := f.svc.codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.String(auth.ClaimID))
	assert.Equal(t, "ADMIN", token.String(auth.ClaimRole))

	session, err := f.svc.Session(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
	assert.Equal(t, "Alice", session.User.Name)
	assert.Equal(t, "a@x.com", session.User.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.Expires, time.Minute)

	assert.Equal(t, 1.0, f.logins(observability.OutcomeSuccess))
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	raw, err := f.svc.Login(context.Background(), auth.Credentials{Email: "missing@x.com", Password: "secret"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Empty(t, raw)
	assert.Equal(t, 1.0, f.logins(observability.OutcomeInvalidCredentials))
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &models.User{Email: "a@x.com", Role: models.RoleUser}, "secret")
	f.seed(t, &models.User{Email: "nohash@x.com", Role: models.RoleUser}, "")

	tests := []struct {
		name  string
		creds auth.Credentials
		want  error
	}{
		{name: "empty email", creds: auth.Credentials{Password: "secret"}, want: common.ErrMissingFields},
		{name: "empty password", creds: auth.Credentials{Email: "a@x.com"}, want: common.ErrMissingFields},
		{name: "wrong password", creds: auth.Credentials{Email: "a@x.com", Password: "nope"}, want: common.ErrInvalidCredentials},
		{name: "no stored hash", creds: auth.Credentials{Email: "nohash@x.com", Password: "secret"}, want: common.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.creds)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 2.0, f.logins(observability.OutcomeMissingFields))
	assert.Equal(t, 2.0, f.logins(observability.OutcomeInvalidCredentials))
}

type failingUsersRepo struct{ err error }

func (r failingUsersRepo) FindUserByEmail(context.Context, string) (*models.User, error) {
	return nil, r.err
}

func (r failingUsersRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, r.err
}

type fakeRepoManager struct {
	users usersrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository         { return m.users }

func TestLogin_StorageFailure_IsInternal(t *testing.T) {
	rm := &fakeRepoManager{users: failingUsersRepo{err: errBoom{}}}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewAuthService(nil, rm, auth.NewBcryptHasher(bcrypt.MinCost), testConfig(), metrics, logging.Nop{})

	_, err := svc.Login(context.Background(), auth.Credentials{Email: "a@x.com", Password: "secret"})
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues(observability.OutcomeError)))
}

func TestSession_ReadsAreStable(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &models.User{Email: "a@x.com", Role: models.RoleUser}, "secret")

	raw, err := f.svc.Login(context.Background(), auth.Credentials{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	first, err := f.svc.Session(context.Background(), raw)
	require.NoError(t, err)
	second, err := f.svc.Session(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSession_InvalidAndExpired(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Session(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	expired := auth.NewTokenCodec([]byte("k"), -time.Minute)
	raw, err := expired.Sign(expired.NewToken(&models.User{ID: "u1"}))
	require.NoError(t, err)

	_, err = f.svc.Session(context.Background(), raw)
	assert.ErrorIs(t, err, common.ErrTokenExpired)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionReadsTotal.WithLabelValues(observability.OutcomeInvalidToken)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionReadsTotal.WithLabelValues(observability.OutcomeExpired)))
}

// --- Register ---

func TestRegister_ThenLogin(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Register(context.Background(), RegisterInput{Email: "new@x.com", Password: "pw", Name: "New"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)
	require.NotNil(t, u.HashedPassword)
	assert.NotEqual(t, "pw", *u.HashedPassword)

	_, err = f.svc.Login(context.Background(), auth.Credentials{Email: "new@x.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrMissingFields)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "pw", Role: "ROOT"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "long@x.com", Password: strings.Repeat("p", 80)})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.rm.Users(nil).FindUserByEmail(context.Background(), "long@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "rejected registration must not create a user")
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_SQLBackend_UsesTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("a@x.com", "Alice", "", sqlmock.AnyArg(), "ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u-1", time.Now()))
	mock.ExpectCommit()

	svc := NewAuthService(db, repomanager.NewPostgresRepositoryManager(), auth.NewBcryptHasher(bcrypt.MinCost),
		testConfig(), nil, logging.Nop{})

	u, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "pw", Name: "Alice", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_SQLBackend_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	svc := NewAuthService(db, repomanager.NewPostgresRepositoryManager(), auth.NewBcryptHasher(bcrypt.MinCost),
		testConfig(), nil, logging.Nop{})

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "pw"})
	if err == nil || !regexp.MustCompile(`error creating user: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped create error, got %v", err)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
