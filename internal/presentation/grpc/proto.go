package grpc

// proto.go defines the gRPC server interface derived from
// udyamcap/lending/v1/lending.proto. This file serves as a stand-in for
// buf-generated code. Once `buf generate` is run, replace this file with the
// import from github.com/udyamcap/lending-engine/api/gen/go/udyamcap/lending/v1.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/udyamcap/lending-engine/internal/application/dto"
)

// Wire messages. The server runs the JSON codec, so the application DTOs are
// the wire format.
type (
	SubmitApplicationRequest  = dto.SubmitApplicationRequest
	SubmitApplicationResponse = dto.ApplicationResponse
	GetApplicationRequest     = dto.GetApplicationRequest
	GetApplicationResponse    = dto.ApplicationResponse
	ListOffersRequest         = dto.ListOffersRequest
	AcceptOfferRequest        = dto.AcceptOfferRequest
	AcceptOfferResponse       = dto.AcceptOfferResponse
	GetLoanRequest            = dto.GetLoanRequest
	GetLoanResponse           = dto.LoanResponse
)

// ListOffersResponse wraps the quote list.
type ListOffersResponse struct {
	Offers []dto.OfferResponse `json:"offers"`
}

// LendingServiceServer is the server API for LendingService.
// It mirrors the proto interface from udyamcap.lending.v1.LendingService.
type LendingServiceServer interface {
	SubmitApplication(context.Context, *SubmitApplicationRequest) (*SubmitApplicationResponse, error)
	GetApplication(context.Context, *GetApplicationRequest) (*GetApplicationResponse, error)
	ListOffers(context.Context, *ListOffersRequest) (*ListOffersResponse, error)
	AcceptOffer(context.Context, *AcceptOfferRequest) (*AcceptOfferResponse, error)
	GetLoan(context.Context, *GetLoanRequest) (*GetLoanResponse, error)
	mustEmbedUnimplementedLendingServiceServer()
}

// UnimplementedLendingServiceServer provides forward-compatible default implementations.
type UnimplementedLendingServiceServer struct{}

func (UnimplementedLendingServiceServer) SubmitApplication(context.Context, *SubmitApplicationRequest) (*SubmitApplicationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitApplication not implemented")
}
func (UnimplementedLendingServiceServer) GetApplication(context.Context, *GetApplicationRequest) (*GetApplicationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetApplication not implemented")
}
func (UnimplementedLendingServiceServer) ListOffers(context.Context, *ListOffersRequest) (*ListOffersResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListOffers not implemented")
}
func (UnimplementedLendingServiceServer) AcceptOffer(context.Context, *AcceptOfferRequest) (*AcceptOfferResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AcceptOffer not implemented")
}
func (UnimplementedLendingServiceServer) GetLoan(context.Context, *GetLoanRequest) (*GetLoanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetLoan not implemented")
}
func (UnimplementedLendingServiceServer) mustEmbedUnimplementedLendingServiceServer() {}

// RegisterLendingServiceServer registers the LendingServiceServer with the gRPC server.
func RegisterLendingServiceServer(s *grpclib.Server, srv LendingServiceServer) {
	s.RegisterService(&_LendingService_serviceDesc, srv) //nolint:revive // gRPC handler registration
}

//nolint:revive // gRPC handler registration
var _LendingService_serviceDesc = grpclib.ServiceDesc{
	ServiceName: "udyamcap.lending.v1.LendingService",
	HandlerType: (*LendingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "SubmitApplication", Handler: _LendingService_SubmitApplication_Handler}, //nolint:revive // gRPC handler registration
		{MethodName: "GetApplication", Handler: _LendingService_GetApplication_Handler},       //nolint:revive // gRPC handler registration
		{MethodName: "ListOffers", Handler: _LendingService_ListOffers_Handler},               //nolint:revive // gRPC handler registration
		{MethodName: "AcceptOffer", Handler: _LendingService_AcceptOffer_Handler},             //nolint:revive // gRPC handler registration
		{MethodName: "GetLoan", Handler: _LendingService_GetLoan_Handler},                     //nolint:revive // gRPC handler registration
	},
	Streams: []grpclib.StreamDesc{},
}

//nolint:revive,errcheck // gRPC handler registration
func _LendingService_SubmitApplication_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitApplicationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LendingServiceServer).SubmitApplication(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/udyamcap.lending.v1.LendingService/SubmitApplication",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LendingServiceServer).SubmitApplication(ctx, req.(*SubmitApplicationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

//nolint:revive,errcheck // gRPC handler registration
func _LendingService_GetApplication_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetApplicationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LendingServiceServer).GetApplication(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/udyamcap.lending.v1.LendingService/GetApplication",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LendingServiceServer).GetApplication(ctx, req.(*GetApplicationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

//nolint:revive,errcheck // gRPC handler registration
func _LendingService_ListOffers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListOffersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LendingServiceServer).ListOffers(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/udyamcap.lending.v1.LendingService/ListOffers",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LendingServiceServer).ListOffers(ctx, req.(*ListOffersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

//nolint:revive,errcheck // gRPC handler registration
func _LendingService_AcceptOffer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(AcceptOfferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LendingServiceServer).AcceptOffer(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/udyamcap.lending.v1.LendingService/AcceptOffer",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LendingServiceServer).AcceptOffer(ctx, req.(*AcceptOfferRequest))
	}
	return interceptor(ctx, in, info, handler)
}

//nolint:revive,errcheck // gRPC handler registration
func _LendingService_GetLoan_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetLoanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LendingServiceServer).GetLoan(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/udyamcap.lending.v1.LendingService/GetLoan",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LendingServiceServer).GetLoan(ctx, req.(*GetLoanRequest))
	}
	return interceptor(ctx, in, info, handler)
}
