// Package grpcserver exposes the capture daemon's health over the standard
// gRPC health protocol. The status follows backend reachability as seen
// by the periodic sync: SERVING while the backend answers, NOT_SERVING
// while records are being queued locally.
package grpcserver

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service. The empty name reports the
// same status.
const ServiceName = "jobtracker.Capture"

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// New constructs a Server. It reports NOT_SERVING until the first
// SetServing call.
func New(log *slog.Logger) *Server {
	s := &Server{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		log:    log.With("component", "grpc"),
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing records whether the backend is reachable.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.set(st)
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("gRPC health listening", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
