package main

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/srand/jolt/testqueue/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Sets up a gRPC health server on a specific listening address and serves
// it until the context is cancelled.
func serveGrpc(ctx context.Context, healthServer *health.Server, address string) error {
	uri, err := url.Parse(address)
	if err != nil {
		return err
	}

	host := uri.Host

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		if uri.Port() == "" {
			// Default port is 9090
			host = fmt.Sprintf("%s:9090", uri.Host)
		}
	case "unix":
		host = uri.Path
	default:
		return fmt.Errorf("Unsupported protocol: %s", uri.Scheme)
	}

	socket, err := net.Listen(uri.Scheme, host)
	if err != nil {
		return err
	}

	if uri.Scheme == "unix" {
		socket.(*net.UnixListener).SetUnlinkOnClose(true)
		log.Info("Listening on", uri.Scheme, uri.Path)
	} else {
		log.Info("Listening on", uri.Scheme, socket.Addr())
	}

	opts := config.GRPCOptions.ToServerOptions()

	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, healthServer)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	return server.Serve(socket)
}

// Creates a health server reporting the queue as not serving until it is started.
func newHealthServer() *health.Server {
	server := health.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	server.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return server
}

func setServing(server *health.Server, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	server.SetServingStatus("", status)
	server.SetServingStatus(healthServiceName, status)
}

const healthServiceName = "jolt.testqueue.Queue"
