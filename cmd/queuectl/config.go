package main

import (
	"github.com/spf13/viper"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

type ControlConfig struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// URI of the queue HTTP API.
	QueueUri string `mapstructure:"queue_uri"`
	// URI of the queue gRPC health service.
	HealthUri string `mapstructure:"health_uri"`
}

func ParseConfig(v *viper.Viper) (*ControlConfig, error) {
	config := &ControlConfig{}
	if err := utils.UnmarshalConfig(v, config); err != nil {
		return nil, err
	}
	if err := config.GRPCOptions.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
