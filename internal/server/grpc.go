package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"YieldVault/internal/ingestion"
	"YieldVault/internal/observability"
)

// GRPCServer serves VaultService over gRPC and plain HTTP/JSON.
type GRPCServer struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	grpcAddr      string
	httpAddr      string
	svc           *VaultService
	healthChecker *observability.HealthChecker
	logger        zerolog.Logger
}

// NewGRPCServer creates a gRPC server with VaultService, health and
// reflection registered.
func NewGRPCServer(grpcAddr, httpAddr string, svc *VaultService, hc *observability.HealthChecker, logger zerolog.Logger) *GRPCServer {
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(serviceDesc(), svc)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	return &GRPCServer{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		svc:           svc,
		healthChecker: hc,
		logger:        logger,
	}
}

// vaultServiceServer is the handler type checked by RegisterService.
type vaultServiceServer interface{}

func serviceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*vaultServiceServer)(nil),
		Metadata:    "yieldvault/v1/vault.proto",
	}
	for _, r := range routes {
		r := r
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: r.name,
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := r.newReq()
				if err := dec(req); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "decode %s: %v", r.name, err)
				}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					resp, err := r.invoke(srv.(*VaultService), ctx, req)
					return resp, toStatus(err)
				}
				if interceptor == nil {
					return handler(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + r.name}
				return interceptor(ctx, req, info, handler)
			},
		})
	}
	return desc
}

// StartGRPC starts the gRPC server (blocking).
func (s *GRPCServer) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("gRPC server shutting down")
		s.grpcServer.GracefulStop()
	}()

	s.logger.Info().Str("addr", s.grpcAddr).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// NewHTTPHandler builds the HTTP/JSON surface: one runtime.ServeMux path
// per service method plus health and metrics endpoints.
func NewHTTPHandler(svc *VaultService, hc *observability.HealthChecker) (http.Handler, error) {
	mux := runtime.NewServeMux()
	for _, r := range routes {
		r := r
		err := mux.HandlePath(r.httpMethod, r.path, func(w http.ResponseWriter, req *http.Request, params map[string]string) {
			in := r.newReq()
			if err := decodeHTTP(req, params, in); err != nil {
				writeError(w, status.Errorf(codes.InvalidArgument, "decode %s: %v", r.name, err))
				return
			}
			resp, err := r.invoke(svc, req.Context(), in)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})
		if err != nil {
			return nil, fmt.Errorf("register %s %s: %w", r.httpMethod, r.path, err)
		}
	}

	httpMux := http.NewServeMux()
	if hc != nil {
		httpMux.HandleFunc("/healthz", hc.LivenessHandler)
		httpMux.HandleFunc("/readyz", hc.ReadinessHandler)
	}
	httpMux.Handle("/metrics", promhttp.Handler())
	httpMux.Handle("/", mux)
	return httpMux, nil
}

// StartHTTPGateway serves the HTTP/JSON surface (blocking).
func (s *GRPCServer) StartHTTPGateway(ctx context.Context) error {
	handler, err := NewHTTPHandler(s.svc, s.healthChecker)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:              s.httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("HTTP gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.httpAddr).Msg("HTTP gateway listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// decodeHTTP fills v from the JSON body, or for GET from query and path
// parameters (all passed as JSON strings).
func decodeHTTP(req *http.Request, params map[string]string, v interface{}) error {
	if req.Method != http.MethodGet {
		err := json.NewDecoder(req.Body).Decode(v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	fields := make(map[string]string, len(params))
	for k, vals := range req.URL.Query() {
		if len(vals) > 0 {
			fields[k] = vals[0]
		}
	}
	for k, val := range params {
		fields[k] = val
	}
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// toStatus maps engine errors to gRPC status by their registered code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ingestion.ErrQueueClosed):
		return status.Error(codes.Unavailable, err.Error())
	}

	var coded interface{ GRPCStatus() *status.Status }
	if errors.As(err, &coded) {
		return status.Error(coded.GRPCStatus().Code(), err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

type errorBody struct {
	Code      codes.Code `json:"code"`
	Codespace string     `json:"codespace,omitempty"`
	ABCICode  uint32     `json:"abci_code,omitempty"`
	Message   string     `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	st, _ := status.FromError(toStatus(err))
	body := errorBody{Code: st.Code(), Message: st.Message()}
	if codespace, code, _ := errorsmod.ABCIInfo(err, false); codespace != errorsmod.UndefinedCodespace {
		body.Codespace, body.ABCICode = codespace, code
	}
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
