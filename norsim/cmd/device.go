package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/sarchlab/norsim/flash"
	"github.com/sarchlab/norsim/monitoring"
	"github.com/sarchlab/norsim/trace"
	"github.com/sarchlab/norsim/workloads"
)

// buildDevice creates the flash device described by the configuration and
// wires up tracing and monitoring.
func buildDevice(name string) *flash.Device {
	logLevel, err := flash.ParseLogLevel(viper.GetString("log-level"))
	dieOnErr(err)

	builder := flash.MakeBuilder().
		WithCapacity(viper.GetUint64("capacity")).
		WithReadUnit(viper.GetUint64("read-unit")).
		WithWriteUnit(viper.GetUint64("write-unit")).
		WithEraseUnit(viper.GetUint64("erase-unit")).
		WithSeed(viper.GetInt64("seed")).
		WithLogLevel(logLevel).
		WithLogCapacity(viper.GetInt("log-capacity"))

	if viper.GetBool("multiwrite") {
		builder = builder.WithMultiwrite()
	}

	if threshold := viper.GetUint64("wear-threshold"); threshold > 0 {
		builder = builder.
			WithWearThreshold(threshold).
			WithFailureRate(viper.GetUint64("failure-rate"))

		if viper.GetBool("probabilistic") {
			builder = builder.WithProbabilisticFailures()
		}
	}

	if file := viper.GetString("backing-file"); file != "" {
		builder = builder.WithBackingFile(file)
	}

	device, err := builder.Build(name)
	dieOnErr(err)

	log.WithFields(log.Fields{
		"capacity":   device.Capacity(),
		"erase_unit": device.EraseUnit(),
		"pages":      device.PageCount(),
	}).Debug("Built flash device")

	attachTracers(device)

	if viper.GetBool("monitor") {
		monitor := monitoring.NewMonitor().
			WithPortNumber(viper.GetInt("monitor-port"))
		monitor.RegisterDevice(device)
		monitor.StartServer()
	}

	return device
}

func attachTracers(device *flash.Device) {
	var writers []trace.Writer

	if path := viper.GetString("trace-csv"); path != "" {
		writers = append(writers, trace.NewCSVWriter(path))
	}

	if path := viper.GetString("trace-sqlite"); path != "" {
		writers = append(writers, trace.NewSQLiteWriter(path))
	}

	if len(writers) == 0 {
		return
	}

	for _, w := range writers {
		w.Init()
	}

	device.AcceptHook(trace.NewHook(writers...))
}

// progressHook returns the workload hook implementing the max-ops cutoff
// and periodic statistics reports.
func progressHook() workloads.Hook {
	maxOps := viper.GetUint64("max-ops")
	reportEvery := viper.GetUint64("report-every")

	return func(d *flash.Device) bool {
		ops := d.TotalOperations()

		if reportEvery > 0 && ops%reportEvery == 0 {
			reportDevice(d)
		}

		return maxOps == 0 || ops < maxOps
	}
}

func reportDevice(d *flash.Device) {
	snapshot := d.Snapshot()

	wornPages := 0
	maxEraseCount := uint64(0)
	for _, p := range snapshot.Pages {
		if p.Worn {
			wornPages++
		}

		if p.EraseCount > maxEraseCount {
			maxEraseCount = p.EraseCount
		}
	}

	log.WithFields(log.Fields{
		"operations":      snapshot.Counters.TotalOperations,
		"reads":           snapshot.Counters.TotalReads,
		"writes":          snapshot.Counters.TotalWrites,
		"erases":          snapshot.Counters.TotalErases,
		"max_erase_count": maxEraseCount,
		"worn_pages":      wornPages,
		"failures":        snapshot.Counters.TotalFailuresInjected,
		"content_hash":    snapshot.ContentHash,
	}).Info("Device statistics")
}
