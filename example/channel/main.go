package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/SensorLog"
)

func main() {
	flow, err := sensorlog.Conf("../../configs/sensorlog.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, messages, closeMessages := sensorlog.NewChannelBroker("fanout", 32)
	defer closeMessages()

	go fanoutWorker("alerts", messages)

	if err := flow.Run(ctx, sensorlog.StreamOutBroker(broker)); err != nil && err != context.Canceled {
		log.Fatalf("agent error: %v", err)
	}
}

// fanoutWorker prints every reading whose status is not Normal.
func fanoutWorker(name string, messages <-chan sensorlog.Message) {
	for msg := range messages {
		var rec struct {
			SensorID    string  `json:"sensor_id"`
			Status      string  `json:"status"`
			Measurement float64 `json:"measurement"`
			Unit        string  `json:"unit"`
		}
		if err := json.Unmarshal(msg.Payload, &rec); err != nil || rec.SensorID == "" {
			continue
		}
		if rec.Status != "Normal" {
			fmt.Printf("[%s] %s %s: %g %s\n", name, rec.SensorID, rec.Status, rec.Measurement, rec.Unit)
		}
	}
}
