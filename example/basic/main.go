package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/SensorLog"
)

func main() {
	// Broker and journal settings come from SENSORLOG_* environment variables.
	cfg, err := sensorlog.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	em, err := sensorlog.NewEmitter(cfg)
	if err != nil {
		log.Fatalf("new emitter: %v", err)
	}

	ctx := context.Background()
	if err := em.Initialize(ctx); err != nil {
		log.Printf("broker unavailable, records stay in %s: %v", cfg.Journal.Dir, err)
	}

	reading := func(d, m float64, st sensorlog.Status) sensorlog.Reading {
		return sensorlog.Reading{
			SensorID:    "sensor-1234",
			Channel:     sensorlog.ChannelSensor,
			DataCenter:  sensorlog.DataCenterFactory1,
			Product:     sensorlog.ProductMachineMonitoring,
			Status:      st,
			Duration:    d,
			Measurement: m,
		}
	}
	must := func(_ sensorlog.SensorRecord, err error) {
		if err != nil {
			log.Fatalf("emit: %v", err)
		}
	}

	if err := em.UpdateStatus(sensorlog.ActionStart, nil); err != nil {
		log.Fatalf("update status: %v", err)
	}
	time.Sleep(5 * time.Second)

	must(em.LogVibration(ctx, reading(2.0, 4.5, sensorlog.StatusNormal)))
	time.Sleep(5 * time.Second)

	must(em.LogTemperature(ctx, reading(1.5, 75.2, sensorlog.StatusNormal)))

	if err := em.UpdateStatus(sensorlog.ActionMaintenance, nil); err != nil {
		log.Fatalf("update status: %v", err)
	}
	time.Sleep(3 * time.Second)

	must(em.LogPressure(ctx, reading(3.0, 2.3, sensorlog.StatusWarning)))

	if err := em.UpdateStatus(sensorlog.ActionStop, nil); err != nil {
		log.Fatalf("update status: %v", err)
	}
	time.Sleep(2 * time.Second)

	must(em.LogElectrical(ctx, reading(2.0, 12.5, sensorlog.StatusCritical)))
	time.Sleep(5 * time.Second)

	must(em.LogHumidity(ctx, reading(1.0, 55.8, sensorlog.StatusNormal)))

	fmt.Printf("Example logging complete. Check %s for the log file.\n", em.JournalStats().Path)

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := em.Close(closeCtx); err != nil {
		log.Fatalf("close: %v", err)
	}
}
