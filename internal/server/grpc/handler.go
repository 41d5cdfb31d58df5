package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	creds := auth.Credentials{
		Email:    pb.StringField(req, pb.FieldEmail),
		Password: pb.StringField(req, pb.FieldPassword),
	}

	token, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, toStatus(err)
	}

	return newStruct(map[string]any{pb.FieldAccessToken: token})
}

func (s *GRPCServer) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	token, ok := accessTokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	session, err := s.auth.Session(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}

	return newStruct(sessionToMap(session))
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	s.logger.Info(ctx, "Registration request")

	in := services.RegisterInput{
		Email:    pb.StringField(req, pb.FieldEmail),
		Password: pb.StringField(req, pb.FieldPassword),
		Name:     pb.StringField(req, pb.FieldName),
		Image:    pb.StringField(req, pb.FieldImage),
		Role:     models.Role(pb.StringField(req, pb.FieldRole)),
	}

	user, err := s.auth.Register(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingFields):
			return nil, status.Error(codes.InvalidArgument, "email and password are required")
		case errors.Is(err, common.ErrorValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			s.logger.Error(ctx, "registration failed", "error", err)
		}
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "id", user.ID)
	return newStruct(map[string]any{pb.FieldID: user.ID})
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return newStruct(map[string]any{pb.FieldStatus: "OK"})

}

// toStatus maps service errors onto gRPC status codes. Credential failures
// share one generic message.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrMissingFields), errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, common.ErrorAlreadyExists.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

func sessionToMap(session *auth.Session) map[string]any {
	var expires string
	if !session.Expires.IsZero() {
		expires = session.Expires.UTC().Format(time.RFC3339)
	}

	return map[string]any{
		pb.FieldUser: map[string]any{
			pb.FieldID:    session.User.ID,
			pb.FieldRole:  string(session.User.Role),
			pb.FieldName:  session.User.Name,
			pb.FieldEmail: session.User.Email,
			pb.FieldImage: session.User.Image,
		},
		pb.FieldExpires: expires,
	}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return s, nil
}
