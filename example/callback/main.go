package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/SensorLog/pkg/sensorlog"
)

func main() {
	flow, err := sensorlog.Conf("../../configs/sensorlog.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(topic string, payload []byte) error {
		fmt.Printf("%s %s\n", topic, payload)
		return nil
	}

	if err := flow.Run(ctx, sensorlog.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("agent error: %v", err)
	}
}
