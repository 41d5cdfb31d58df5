// Package proto declares the authkeeper.AuthService gRPC contract. Requests
// and responses are google.protobuf.Struct messages; field names are the
// Field* constants below.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "authkeeper.AuthService"

const (
	AuthService_Login_FullMethodName      = "/authkeeper.AuthService/Login"
	AuthService_GetSession_FullMethodName = "/authkeeper.AuthService/GetSession"
	AuthService_Register_FullMethodName   = "/authkeeper.AuthService/Register"
	AuthService_Ping_FullMethodName       = "/authkeeper.AuthService/Ping"
)

// Message fields.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldName        = "name"
	FieldImage       = "image"
	FieldRole        = "role"
	FieldID          = "id"
	FieldUser        = "user"
	FieldExpires     = "expires"
	FieldAccessToken = "access_token"
	FieldStatus      = "status"
)

// AuthServiceServer is implemented by the server side of AuthService.
type AuthServiceServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

type unaryCall func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Login",
			Handler: unaryHandler(AuthService_Login_FullMethodName, func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.Login(ctx, in)
			}),
		},
		{
			MethodName: "GetSession",
			Handler: unaryHandler(AuthService_GetSession_FullMethodName, func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetSession(ctx, in)
			}),
		},
		{
			MethodName: "Register",
			Handler: unaryHandler(AuthService_Register_FullMethodName, func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.Register(ctx, in)
			}),
		},
		{
			MethodName: "Ping",
			Handler: unaryHandler(AuthService_Ping_FullMethodName, func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.Ping(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authkeeper/auth.proto",
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func (c *authServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Login_FullMethodName, in, opts)
}

func (c *authServiceClient) GetSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_GetSession_FullMethodName, in, opts)
}

func (c *authServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Register_FullMethodName, in, opts)
}

func (c *authServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Ping_FullMethodName, in, opts)
}

// StringField returns the string value stored under key, or "" when the
// field is absent or not a string.
func StringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// StructField returns the nested struct stored under key, or nil.
func StructField(s *structpb.Struct, key string) *structpb.Struct {
	if s == nil {
		return nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	return v.GetStructValue()
}
