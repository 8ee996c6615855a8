package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ghalamif/SensorLog"
	"github.com/ghalamif/SensorLog/internal/ports"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "emit":
		err = emitCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("sensorlog %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./configs/sensorlog.yaml", "Path to agent configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := sensorlog.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func emitCommand(args []string) error {
	fs := pflag.NewFlagSet("emit", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to configuration file (defaults and SENSORLOG_* env when empty)")
	kind := fs.String("kind", "vibration", "Sensor kind (vibration, temperature, pressure, electrical, humidity, ...)")
	sensorID := fs.String("sensor-id", "", "Sensor identifier")
	channel := fs.String("channel", "Sensor", "Channel")
	dataCenter := fs.String("data-center", "Factory 1", "Data center")
	product := fs.String("product", "Machine Monitoring", "Product")
	status := fs.String("status", "Normal", "Sensor status")
	duration := fs.Float64("duration", 0, "Seconds the measurement covers")
	measurement := fs.Float64("measurement", 0, "Measured value")
	meta := fs.StringToString("meta", nil, "Extra metadata as key=value pairs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sensorID == "" {
		return errors.New("--sensor-id is required")
	}

	r := sensorlog.Reading{
		SensorID:    *sensorID,
		Duration:    *duration,
		Measurement: *measurement,
		Metadata:    toMetadata(*meta),
	}
	var err error
	if r.Kind, err = sensorlog.ParseSensorKind(*kind); err != nil {
		return err
	}
	if r.Channel, err = sensorlog.ParseChannel(*channel); err != nil {
		return err
	}
	if r.DataCenter, err = sensorlog.ParseDataCenter(*dataCenter); err != nil {
		return err
	}
	if r.Product, err = sensorlog.ParseProduct(*product); err != nil {
		return err
	}
	if r.Status, err = sensorlog.ParseStatus(*status); err != nil {
		return err
	}

	return withEmitter(*cfgPath, func(ctx context.Context, em *sensorlog.Emitter) error {
		rec, err := em.EmitSensor(ctx, r)
		if err != nil {
			return err
		}
		return printJSON(rec)
	})
}

func statusCommand(args []string) error {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to configuration file (defaults and SENSORLOG_* env when empty)")
	action := fs.String("action", "", "Machine action (Start, Stop, Maintenance, Calibration, Error Detected, Reset)")
	journalOnly := fs.Bool("journal-only", false, "Record the transition in the journal without dispatching it")
	meta := fs.StringToString("meta", nil, "Extra metadata as key=value pairs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := sensorlog.ParseAction(*action)
	if err != nil {
		return err
	}

	return withEmitter(*cfgPath, func(ctx context.Context, em *sensorlog.Emitter) error {
		if *journalOnly {
			if err := em.UpdateStatus(a, toMetadata(*meta)); err != nil {
				return err
			}
			return printJSON(em.StatusMetadata())
		}
		rec, err := em.LogMachineStatus(ctx, a, toMetadata(*meta))
		if err != nil {
			return err
		}
		return printJSON(rec)
	})
}

func withEmitter(cfgPath string, fn func(context.Context, *sensorlog.Emitter) error) error {
	cfg, err := sensorlog.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	em, err := sensorlog.NewEmitter(cfg, sensorlog.WithErrorHandler(func(op string, err error) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", op, err)
	}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dispatch.SendTimeout+cfg.Broker.ConnectTimeout)
	defer cancel()

	// A broker that cannot be reached is reported and the record still lands
	// in the journal.
	_ = em.Initialize(ctx)

	runErr := fn(ctx, em)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Dispatch.DrainTimeout)
	defer closeCancel()
	return errors.Join(runErr, em.Close(closeCtx))
}

func toMetadata(kv map[string]string) sensorlog.Metadata {
	if len(kv) == 0 {
		return nil
	}
	md := make(sensorlog.Metadata, len(kv))
	for k, v := range kv {
		md[k] = v
	}
	return md
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./configs/sensorlog.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sensorlog.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if _, err := cfg.Machine.Parse(); err != nil {
		return err
	}
	fmt.Printf("config %s looks good (broker=%s dispatch=%t journal=%s)\n",
		*cfgPath, cfg.Broker.Kind, cfg.DispatchEnabled(), cfg.Journal.Dir)
	return nil
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		ports.MetricRecordsEmitted: 0,
		ports.MetricBrokerFailures: 0,
		ports.MetricQueueLength:    0,
		ports.MetricJournalSize:    0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] emitted=%.0f broker_failures=%.0f queue=%.0f journal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets[ports.MetricRecordsEmitted],
		targets[ports.MetricBrokerFailures],
		targets[ports.MetricQueueLength],
		targets[ports.MetricJournalSize],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`SensorLog CLI

Usage:
  sensorlog <command> [flags]

Commands:
  run        Start the collection agent using the provided config
  emit       Record one sensor reading and exit
  status     Record one machine action and exit
  validate   Load and validate a config file without starting the agent
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  sensorlog run --config ./configs/sensorlog.yaml
  sensorlog emit --kind temperature --sensor-id temp-1 --measurement 21.5
  sensorlog status --action Start --meta operator=alice
  sensorlog validate --config ./configs/sensorlog.yaml
  sensorlog stats --url http://localhost:9100/metrics --interval 1s
`)
}
