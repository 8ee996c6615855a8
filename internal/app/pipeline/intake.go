package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// SensorEmitter is the part of Pipeline the emit loop drives.
type SensorEmitter interface {
	EmitSensor(ctx context.Context, r domain.Reading) (domain.SensorRecord, error)
}

// RunIntake starts col and moves its readings into q until the collector
// closes its channel or ctx is done. The returned channel closes when intake
// stops.
func RunIntake(ctx context.Context, col ports.Collector, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) (<-chan struct{}, error) {
	ch := make(chan *domain.Reading, pol.MaxQueueLen)
	if err := col.Start(ch); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-ch:
				if !ok {
					return
				}
				if !enqueueWithPolicy(ctx, q, r, pol, obs) {
					obs.IncCounter(ports.MetricQueueDropped, 1)
				}
				obs.SetGauge(ports.MetricQueueLength, float64(q.Len()))
			}
		}
	}()
	return done, nil
}

func enqueueWithPolicy(ctx context.Context, q ports.ReadingQueue, r *domain.Reading, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(r); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen),
				ports.Field{Key: "sensor_id", Value: r.SensorID})
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

// RunEmitLoop drains q in batches, applies tr and emits every reading until
// ctx is done. Whatever is still queued at that point is emitted before it
// returns. Readings rejected by tr or by record construction are counted and
// logged, never retried.
func RunEmitLoop(ctx context.Context, q ports.ReadingQueue, tr ports.Transformer, em SensorEmitter, pol ports.Policy, obs ports.Observability) {
	batchSize := pol.MaxBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	sleep := idleSleep(pol)

	for {
		batch := q.DequeueBatch(batchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				drainQueue(q, tr, em, batchSize, obs)
				return
			case <-time.After(sleep):
			}
			continue
		}
		emitBatch(context.WithoutCancel(ctx), batch, tr, em, obs)
		obs.SetGauge(ports.MetricQueueLength, float64(q.Len()))
	}
}

func drainQueue(q ports.ReadingQueue, tr ports.Transformer, em SensorEmitter, batchSize int, obs ports.Observability) {
	for {
		batch := q.DequeueBatch(batchSize)
		if len(batch) == 0 {
			obs.SetGauge(ports.MetricQueueLength, 0)
			return
		}
		emitBatch(context.Background(), batch, tr, em, obs)
	}
}

func emitBatch(ctx context.Context, batch []*domain.Reading, tr ports.Transformer, em SensorEmitter, obs ports.Observability) {
	for _, r := range batch {
		in := r
		if tr != nil {
			out, err := tr.Transform(r)
			if err != nil {
				obs.IncCounter(ports.MetricRecordsRejected, 1)
				obs.LogError("transform_failed", err,
					ports.Field{Key: "sensor_id", Value: r.SensorID},
					ports.Field{Key: "transform_version", Value: tr.Version()})
				continue
			}
			in = out
		}
		if _, err := em.EmitSensor(ctx, *in); err != nil {
			obs.LogError("record_rejected", err,
				ports.Field{Key: "sensor_id", Value: in.SensorID},
				ports.Field{Key: "source_node", Value: in.SourceNodeID})
		}
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}
