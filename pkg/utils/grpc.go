package utils

import (
	"fmt"
	"time"

	"github.com/srand/jolt/testqueue/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Keepalive tuning shared by the queue server and its gRPC clients.
type GRPCOptions struct {
	// The interval between PING frames.
	KeepAliveTime *time.Duration `mapstructure:"keep_alive_time"`
	// The timeout for a PING frame to be acknowledged.
	KeepAliveTimeout *time.Duration `mapstructure:"keep_alive_timeout"`
	// Send keepalive pings even if there are no active streams (client).
	KeepAliveWithoutCalls *bool `mapstructure:"keep_alive_without_calls"`
	// Are clients allowed to send keepalive pings without active streams (server).
	PermitKeepAliveWithoutCalls *bool `mapstructure:"permit_keep_alive_without_calls"`
	// Minimum allowed time between a server receiving successive ping frames without sending any data/header frame.
	PermitKeepAliveTime *time.Duration `mapstructure:"permit_keep_alive_time"`
}

func (o *GRPCOptions) Validate() error {
	if o.KeepAliveTime != nil && *o.KeepAliveTime <= 0 {
		return fmt.Errorf("grpc.keep_alive_time must be positive")
	}
	if o.KeepAliveTimeout != nil && *o.KeepAliveTimeout <= 0 {
		return fmt.Errorf("grpc.keep_alive_timeout must be positive")
	}
	return nil
}

func (o *GRPCOptions) ToServerOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{}

	serverParameters := keepalive.ServerParameters{}
	enforcePolicy := keepalive.EnforcementPolicy{}

	if o.KeepAliveTime != nil {
		serverParameters.Time = *o.KeepAliveTime
	}

	if o.KeepAliveTimeout != nil {
		serverParameters.Timeout = *o.KeepAliveTimeout
	}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil {
		opts = append(opts, grpc.KeepaliveParams(serverParameters))
	}

	if o.PermitKeepAliveWithoutCalls != nil {
		enforcePolicy.PermitWithoutStream = *o.PermitKeepAliveWithoutCalls
	}

	if o.PermitKeepAliveTime != nil {
		enforcePolicy.MinTime = *o.PermitKeepAliveTime
	}

	if o.PermitKeepAliveWithoutCalls != nil || o.PermitKeepAliveTime != nil {
		opts = append(opts, grpc.KeepaliveEnforcementPolicy(enforcePolicy))
	}

	return opts
}

// ToDialOptions returns client options, always including insecure
// transport credentials since the queue does not terminate TLS.
func (o *GRPCOptions) ToDialOptions() []grpc.DialOption {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	kaParams := keepalive.ClientParameters{}

	if o.KeepAliveTime != nil {
		kaParams.Time = *o.KeepAliveTime
	}

	if o.KeepAliveTimeout != nil {
		kaParams.Timeout = *o.KeepAliveTimeout
	}

	if o.KeepAliveWithoutCalls != nil {
		kaParams.PermitWithoutStream = *o.KeepAliveWithoutCalls
	}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil || o.KeepAliveWithoutCalls != nil {
		opts = append(opts, grpc.WithKeepaliveParams(kaParams))
	}

	return opts
}

func (o *GRPCOptions) Log() {
	if o.KeepAliveTime == nil && o.KeepAliveTimeout == nil &&
		o.KeepAliveWithoutCalls == nil &&
		o.PermitKeepAliveWithoutCalls == nil &&
		o.PermitKeepAliveTime == nil {
		return
	}

	log.Info("  gRPC options:")

	if o.KeepAliveTime != nil {
		log.Infof("    keep_alive_time = %v", *o.KeepAliveTime)
	}
	if o.KeepAliveTimeout != nil {
		log.Infof("    keep_alive_timeout = %v", *o.KeepAliveTimeout)
	}
	if o.KeepAliveWithoutCalls != nil {
		log.Infof("    keep_alive_without_calls = %v", *o.KeepAliveWithoutCalls)
	}
	if o.PermitKeepAliveWithoutCalls != nil {
		log.Infof("    permit_keep_alive_without_calls = %v", *o.PermitKeepAliveWithoutCalls)
	}
	if o.PermitKeepAliveTime != nil {
		log.Infof("    permit_keep_alive_time = %v", *o.PermitKeepAliveTime)
	}
}
