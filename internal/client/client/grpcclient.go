// Package client talks to the authkeeper gRPC service.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.AuthServiceClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the token obtained by Login to every call.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewAuthKeeperClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAuthServiceClient(conn)
	return nil
}

// Register creates an account and returns its id. An empty role lets the
// server pick the default.
func (s *GRPCClient) Register(ctx context.Context, email, password, name, role string) (string, error) {

	req, err := structpb.NewStruct(map[string]any{
		pb.FieldEmail:    email,
		pb.FieldPassword: password,
		pb.FieldName:     name,
		pb.FieldRole:     role,
	})
	if err != nil {
		return "", err
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	return pb.StringField(resp, pb.FieldID), nil
}

// Login signs in and keeps the access token for later calls.
func (s *GRPCClient) Login(ctx context.Context, email, password string) error {

	req, err := structpb.NewStruct(map[string]any{
		pb.FieldEmail:    email,
		pb.FieldPassword: password,
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.accessToken = pb.StringField(resp, pb.FieldAccessToken)

	return nil
}

// Session reads the current session for the stored access token.
func (s *GRPCClient) Session(ctx context.Context) (*models.Session, error) {

	if s.accessToken == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.GetSession(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}

	user := pb.StructField(resp, pb.FieldUser)
	session := &models.Session{
		User: models.SessionUser{
			ID:    pb.StringField(user, pb.FieldID),
			Role:  pb.StringField(user, pb.FieldRole),
			Name:  pb.StringField(user, pb.FieldName),
			Email: pb.StringField(user, pb.FieldEmail),
			Image: pb.StringField(user, pb.FieldImage),
		},
	}

	if exp := pb.StringField(resp, pb.FieldExpires); exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("bad expires value %q: %w", exp, err)
		}
		session.Expires = t
	}

	return session, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return s.mapError(err)
	}

	if pb.StringField(resp, pb.FieldStatus) != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) AccessToken() string {
	return s.accessToken
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// mapError turns gRPC statuses back into the shared error values.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		switch st.Message() {
		case common.ErrInvalidCredentials.Error():
			return common.ErrInvalidCredentials
		case common.ErrTokenExpired.Error():
			return common.ErrTokenExpired
		default:
			return common.ErrInvalidToken
		}
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
