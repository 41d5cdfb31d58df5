package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc"
)

// AuthService is the business logic the gRPC handlers delegate to.
type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (string, error)
	Session(ctx context.Context, rawToken string) (*auth.Session, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	logger  logging.Logger
	serving atomic.Bool
}

func NewGRPCServer(a string, l logging.Logger, as AuthService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
	}
}

// Serving reports whether the server is accepting connections.
func (s *GRPCServer) Serving() bool {
	return s.serving.Load()
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	pb.RegisterAuthServiceServer(srv, s)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.serving.Store(false)
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	s.serving.Store(true)

	err := srv.Serve(lis)
	s.serving.Store(false)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		cancel()
		<-stopped
		return err
	}

	<-stopped
	return nil
}
