package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "cipherroom.Relay"

// Full method names.
const (
	MethodAppendMessage     = "/" + ServiceName + "/AppendMessage"
	MethodDeleteMessage     = "/" + ServiceName + "/DeleteMessage"
	MethodAddParticipant    = "/" + ServiceName + "/AddParticipant"
	MethodRemoveParticipant = "/" + ServiceName + "/RemoveParticipant"
	MethodWatchMessages     = "/" + ServiceName + "/WatchMessages"
	MethodWatchParticipants = "/" + ServiceName + "/WatchParticipants"
	MethodCreateInvite      = "/" + ServiceName + "/CreateInvite"
	MethodListInvites       = "/" + ServiceName + "/ListInvites"
	MethodUpdateInvite      = "/" + ServiceName + "/UpdateInvite"
	MethodDeleteInvite      = "/" + ServiceName + "/DeleteInvite"
)

// RelayServer is the server API for cipherroom.Relay.
type RelayServer interface {
	AppendMessage(context.Context, *AppendMessageRequest) (*Message, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*Empty, error)
	AddParticipant(context.Context, *AddParticipantRequest) (*Participant, error)
	RemoveParticipant(context.Context, *RemoveParticipantRequest) (*Empty, error)
	WatchMessages(*WatchRequest, grpc.ServerStreamingServer[MessageSnapshot]) error
	WatchParticipants(*WatchRequest, grpc.ServerStreamingServer[ParticipantSnapshot]) error
	CreateInvite(context.Context, *CreateInviteRequest) (*Invite, error)
	ListInvites(context.Context, *ListInvitesRequest) (*InviteList, error)
	UpdateInvite(context.Context, *UpdateInviteRequest) (*Invite, error)
	DeleteInvite(context.Context, *DeleteInviteRequest) (*Empty, error)
}

// RegisterRelayServer registers srv on s.
func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&RelayServiceDesc, srv)
}

func unary[Req, Resp any](fullMethod string, call func(RelayServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RelayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func serverStream[Resp any](call func(RelayServer, *WatchRequest, grpc.ServerStreamingServer[Resp]) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(WatchRequest)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv.(RelayServer), in, &grpc.GenericServerStream[WatchRequest, Resp]{ServerStream: stream})
	}
}

// Stream indexes in RelayServiceDesc.Streams.
const (
	StreamWatchMessages = iota
	StreamWatchParticipants
)

// RelayServiceDesc describes cipherroom.Relay.
var RelayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AppendMessage", Handler: unary(MethodAppendMessage, RelayServer.AppendMessage)},
		{MethodName: "DeleteMessage", Handler: unary(MethodDeleteMessage, RelayServer.DeleteMessage)},
		{MethodName: "AddParticipant", Handler: unary(MethodAddParticipant, RelayServer.AddParticipant)},
		{MethodName: "RemoveParticipant", Handler: unary(MethodRemoveParticipant, RelayServer.RemoveParticipant)},
		{MethodName: "CreateInvite", Handler: unary(MethodCreateInvite, RelayServer.CreateInvite)},
		{MethodName: "ListInvites", Handler: unary(MethodListInvites, RelayServer.ListInvites)},
		{MethodName: "UpdateInvite", Handler: unary(MethodUpdateInvite, RelayServer.UpdateInvite)},
		{MethodName: "DeleteInvite", Handler: unary(MethodDeleteInvite, RelayServer.DeleteInvite)},
	},
	Streams: []grpc.StreamDesc{
		StreamWatchMessages: {
			StreamName:    "WatchMessages",
			Handler:       serverStream(RelayServer.WatchMessages),
			ServerStreams: true,
		},
		StreamWatchParticipants: {
			StreamName:    "WatchParticipants",
			Handler:       serverStream(RelayServer.WatchParticipants),
			ServerStreams: true,
		},
	},
	Metadata: "cipherroom/relay",
}
