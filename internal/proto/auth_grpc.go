// Package proto defines the gophauth.v1.AuthService gRPC contract. Requests
// and responses are google.protobuf.Struct values, so the service needs no
// generated message types; the descriptor and stubs below follow the shape
// protoc-gen-go-grpc would emit.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gophauth.v1.AuthService"

const (
	AuthService_Register_FullMethodName = "/" + ServiceName + "/Register"
	AuthService_Login_FullMethodName    = "/" + ServiceName + "/Login"
	AuthService_Refresh_FullMethodName  = "/" + ServiceName + "/Refresh"
	AuthService_Logout_FullMethodName   = "/" + ServiceName + "/Logout"
	AuthService_Me_FullMethodName       = "/" + ServiceName + "/Me"
)

// Field names shared by requests and responses.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
	FieldID           = "id"
	FieldRole         = "role"
	FieldCreatedAt    = "createdAt"
)

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

type unaryCall func(srv AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
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
			MethodName: "Register",
			Handler: unaryHandler(AuthService_Register_FullMethodName, func(s AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Register(ctx, in)
			}),
		},
		{
			MethodName: "Login",
			Handler: unaryHandler(AuthService_Login_FullMethodName, func(s AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Login(ctx, in)
			}),
		},
		{
			MethodName: "Refresh",
			Handler: unaryHandler(AuthService_Refresh_FullMethodName, func(s AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Refresh(ctx, in)
			}),
		},
		{
			MethodName: "Logout",
			Handler: unaryHandler(AuthService_Logout_FullMethodName, func(s AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Logout(ctx, in)
			}),
		},
		{
			MethodName: "Me",
			Handler: unaryHandler(AuthService_Me_FullMethodName, func(s AuthServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Me(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Refresh(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Logout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Me(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
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

func (c *authServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Register_FullMethodName, in, opts)
}

func (c *authServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Login_FullMethodName, in, opts)
}

func (c *authServiceClient) Refresh(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Refresh_FullMethodName, in, opts)
}

func (c *authServiceClient) Logout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Logout_FullMethodName, in, opts)
}

func (c *authServiceClient) Me(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthService_Me_FullMethodName, in, opts)
}

// String returns the string field key of s, or "" when absent.
func String(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// Strings builds a Struct with string values.
func Strings(kv map[string]string) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(kv))
	for k, v := range kv {
		fields[k] = structpb.NewStringValue(v)
	}
	return &structpb.Struct{Fields: fields}
}
