package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---- fakes ----

type fakeAuth struct {
	lastCreds    auth.Credentials
	lastToken    string
	lastRegister services.RegisterInput

	loginResp string
	loginErr  error

	sessionResp *auth.Session
	sessionErr  error

	registerResp *models.User
	registerErr  error
}

func (f *fakeAuth) Login(ctx context.Context, creds auth.Credentials) (string, error) {
	f.lastCreds = creds
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Session(ctx context.Context, rawToken string) (*auth.Session, error) {
	f.lastToken = rawToken
	return f.sessionResp, f.sessionErr
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.lastRegister = in
	return f.registerResp, f.registerErr
}

func newTestServer(fa *fakeAuth) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, fa)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func requireStatus(t *testing.T, err error, code codes.Code, msg string) {
	t.Helper()
	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status, got %v", err)
	assert.Equal(t, code, st.Code())
	if msg != "" {
		assert.Equal(t, msg, st.Message())
	}
}

// ---- Login ----

func TestLogin_Success(t *testing.T) {
	fa := &fakeAuth{loginResp: "signed.jwt.token"}
	s := newTestServer(fa)

	resp, err := s.Login(context.Background(), mustStruct(t, map[string]any{
		pb.FieldEmail:    "a@x.com",
		pb.FieldPassword: "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "signed.jwt.token", pb.StringField(resp, pb.FieldAccessToken))
	assert.Equal(t, auth.Credentials{Email: "a@x.com", Password: "secret"}, fa.lastCreds)
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{name: "missing fields", err: common.ErrMissingFields, code: codes.Unauthenticated, msg: "invalid credentials"},
		{name: "invalid credentials", err: common.ErrInvalidCredentials, code: codes.Unauthenticated, msg: "invalid credentials"},
		{name: "internal", err: common.ErrorInternal, code: codes.Internal, msg: "internal error"},
		{name: "unexpected", err: errors.New("boom"), code: codes.Internal, msg: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{loginErr: tt.err})

			resp, err := s.Login(context.Background(), mustStruct(t, map[string]any{}))
			assert.Nil(t, resp)
			requireStatus(t, err, tt.code, tt.msg)
		})
	}
}

// ---- GetSession ----

func TestGetSession_Success(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	fa := &fakeAuth{sessionResp: &auth.Session{
		User:    auth.SessionUser{ID: "u1", Role: models.RoleAdmin, Name: "Alice", Email: "a@x.com"},
		Expires: exp,
	}}
	s := newTestServer(fa)

	ctx := context.WithValue(context.Background(), accessTokenKey, "tok")
	resp, err := s.GetSession(ctx, &structpb.Struct{})
	require.NoError(t, err)

	assert.Equal(t, "tok", fa.lastToken)
	user := pb.StructField(resp, pb.FieldUser)
	require.NotNil(t, user)
	assert.Equal(t, "u1", pb.StringField(user, pb.FieldID))
	assert.Equal(t, "ADMIN", pb.StringField(user, pb.FieldRole))
	assert.Equal(t, "Alice", pb.StringField(user, pb.FieldName))
	assert.Equal(t, "a@x.com", pb.StringField(user, pb.FieldEmail))
	assert.Equal(t, "2030-01-02T03:04:05Z", pb.StringField(resp, pb.FieldExpires))
}

func TestGetSession_NoTokenInContext(t *testing.T) {
	s := newTestServer(&fakeAuth{})

	_, err := s.GetSession(context.Background(), &structpb.Struct{})
	requireStatus(t, err, codes.Unauthenticated, "missing token")
}

func TestGetSession_ErrorMapping(t *testing.T) {
	tests := []struct {
		err error
		msg string
	}{
		{err: common.ErrInvalidToken, msg: "invalid token"},
		{err: common.ErrTokenExpired, msg: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			s := newTestServer(&fakeAuth{sessionErr: tt.err})
			ctx := context.WithValue(context.Background(), accessTokenKey, "tok")

			_, err := s.GetSession(ctx, &structpb.Struct{})
			requireStatus(t, err, codes.Unauthenticated, tt.msg)
		})
	}
}

// ---- Register ----

func TestRegister_Success(t *testing.T) {
	fa := &fakeAuth{registerResp: &models.User{ID: "u-42"}}
	s := newTestServer(fa)

	resp, err := s.Register(context.Background(), mustStruct(t, map[string]any{
		pb.FieldEmail:    "a@x.com",
		pb.FieldPassword: "pw",
		pb.FieldName:     "Alice",
		pb.FieldRole:     "ADMIN",
	}))
	require.NoError(t, err)

	assert.Equal(t, "u-42", pb.StringField(resp, pb.FieldID))
	assert.Equal(t, services.RegisterInput{Email: "a@x.com", Password: "pw", Name: "Alice", Role: models.RoleAdmin}, fa.lastRegister)
}

func TestRegister_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "missing fields", err: common.ErrMissingFields, code: codes.InvalidArgument},
		{name: "bad role", err: fmt.Errorf("%w: unknown role", common.ErrorValidation), code: codes.InvalidArgument},
		{name: "password too long", err: fmt.Errorf("%w: %w", common.ErrorValidation, bcrypt.ErrPasswordTooLong), code: codes.InvalidArgument},
		{name: "duplicate", err: common.ErrorAlreadyExists, code: codes.AlreadyExists},
		{name: "storage", err: errors.New("error creating user: db down"), code: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{registerErr: tt.err})

			_, err := s.Register(context.Background(), mustStruct(t, map[string]any{}))
			requireStatus(t, err, tt.code, "")
		})
	}
}

func TestPing(t *testing.T) {
	s := newTestServer(&fakeAuth{})

	resp, err := s.Ping(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pb.StringField(resp, pb.FieldStatus))
}
