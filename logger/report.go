package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type stageStat struct {
	records int64
	bytes   int64
}

var (
	errorsReader    int64
	errorsProcessor int64
	errorsWriter    int64
	warnsReader     int64
	warnsProcessor  int64
	warnsWriter     int64
	rowsRead        int64
	rowsDropped     int64
	outputsWritten  int64
	stages          sync.Map // map[string]*stageStat
)

func recordWarn(component string) {
	switch {
	case strings.Contains(component, "reader"):
		atomic.AddInt64(&warnsReader, 1)
	case strings.Contains(component, "writer"):
		atomic.AddInt64(&warnsWriter, 1)
	default:
		atomic.AddInt64(&warnsProcessor, 1)
	}
}

func recordError(component string) {
	switch {
	case strings.Contains(component, "reader"):
		atomic.AddInt64(&errorsReader, 1)
	case strings.Contains(component, "writer"):
		atomic.AddInt64(&errorsWriter, 1)
	default:
		atomic.AddInt64(&errorsProcessor, 1)
	}
}

// IncrementRowsRead counts snapshot rows accepted by the reader.
func IncrementRowsRead(n int) {
	atomic.AddInt64(&rowsRead, int64(n))
	recordStage("reader", n)
}

// IncrementRowsDropped counts rows excluded for unparseable timestamps or
// missing columns.
func IncrementRowsDropped(n int) {
	atomic.AddInt64(&rowsDropped, int64(n))
	recordStage("dropped", n)
}

// IncrementOutputWrite counts one written artifact of the given size.
func IncrementOutputWrite(size int64) {
	atomic.AddInt64(&outputsWritten, 1)
	v, _ := stages.LoadOrStore("writer", &stageStat{})
	st := v.(*stageStat)
	atomic.AddInt64(&st.records, 1)
	atomic.AddInt64(&st.bytes, size)
}

// RecordStageRecords attributes record throughput to a named stage.
func RecordStageRecords(name string, n int) {
	recordStage(name, n)
}

func recordStage(name string, n int) {
	v, _ := stages.LoadOrStore(name, &stageStat{})
	st := v.(*stageStat)
	atomic.AddInt64(&st.records, int64(n))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	stageData := map[string]map[string]int64{}
	stages.Range(func(k, v any) bool {
		name := k.(string)
		st := v.(*stageStat)
		stageData[name] = map[string]int64{
			"records": atomic.LoadInt64(&st.records),
			"bytes":   atomic.LoadInt64(&st.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_reader":    atomic.LoadInt64(&errorsReader),
		"errors_processor": atomic.LoadInt64(&errorsProcessor),
		"errors_writer":    atomic.LoadInt64(&errorsWriter),
		"warns_reader":     atomic.LoadInt64(&warnsReader),
		"warns_processor":  atomic.LoadInt64(&warnsProcessor),
		"warns_writer":     atomic.LoadInt64(&warnsWriter),
		"rows_read":        atomic.LoadInt64(&rowsRead),
		"rows_dropped":     atomic.LoadInt64(&rowsDropped),
		"outputs_written":  atomic.LoadInt64(&outputsWritten),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"stages":           stageData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsReader"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsReader)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsProcessor"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsProcessor)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsWriter"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsWriter)))},
		cwtypes.MetricDatum{MetricName: aws.String("RowsRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&rowsRead)))},
		cwtypes.MetricDatum{MetricName: aws.String("RowsDropped"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&rowsDropped)))},
		cwtypes.MetricDatum{MetricName: aws.String("OutputsWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&outputsWritten)))},
	)

	for name, stats := range stageData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("StageRecords"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stage"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["records"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
