package main

import (
	"context"
	"time"

	"github.com/srand/jolt/testqueue/pkg/client"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"google.golang.org/grpc"
)

func NewQueueClient() *client.Client {
	c, err := client.NewClient(configData.QueueUri)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func NewHealthConn() *grpc.ClientConn {
	grpcHost, err := utils.ParseGrpcUrl(configData.HealthUri)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := grpc.NewClient(grpcHost, configData.GRPCOptions.ToDialOptions()...)
	if err != nil {
		log.Fatal(err)
	}

	return conn
}

func DefaultDeadlineContext() (context.Context, func()) {
	return context.WithDeadline(context.Background(), time.Now().Add(time.Second*30))
}
