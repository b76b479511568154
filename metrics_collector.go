package wheel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SpinCollector exports a SpinMonitor's counters as Prometheus metrics
type SpinCollector struct {
	monitor *SpinMonitor

	spins          *prometheus.Desc
	rejectedSpins  *prometheus.Desc
	failedSpins    *prometheus.Desc
	revealedSpins  *prometheus.Desc
	removedWinners *prometheus.Desc
	optionEdits    *prometheus.Desc
	storeErrors    *prometheus.Desc
	spinSeconds    *prometheus.Desc
}

// NewSpinCollector creates a collector labelled with the wheel id
func NewSpinCollector(monitor *SpinMonitor, wheelID string) *SpinCollector {
	labels := prometheus.Labels{"wheel_id": wheelID}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("wheel", "", name), help, nil, labels)
	}

	return &SpinCollector{
		monitor:        monitor,
		spins:          desc("spins_total", "Number of spins started."),
		rejectedSpins:  desc("rejected_spins_total", "Number of spins rejected because another spin was in progress."),
		failedSpins:    desc("failed_spins_total", "Number of spins that failed to start."),
		revealedSpins:  desc("revealed_spins_total", "Number of spins revealed."),
		removedWinners: desc("removed_winners_total", "Number of winners removed from the wheel."),
		optionEdits:    desc("option_edits_total", "Number of option additions, updates and deletions."),
		storeErrors:    desc("store_errors_total", "Number of option store and spin guard errors."),
		spinSeconds:    desc("spin_seconds_average", "Average time from spin start to reveal in seconds."),
	}
}

// Describe implements prometheus.Collector
func (c *SpinCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.spins
	ch <- c.rejectedSpins
	ch <- c.failedSpins
	ch <- c.revealedSpins
	ch <- c.removedWinners
	ch <- c.optionEdits
	ch <- c.storeErrors
	ch <- c.spinSeconds
}

// Collect implements prometheus.Collector
func (c *SpinCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.monitor.GetMetrics()

	counter := func(desc *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	counter(c.spins, m.TotalSpins)
	counter(c.rejectedSpins, m.RejectedSpins)
	counter(c.failedSpins, m.FailedSpins)
	counter(c.revealedSpins, m.RevealedSpins)
	counter(c.removedWinners, m.RemovedWinners)
	counter(c.optionEdits, m.OptionEdits)
	counter(c.storeErrors, m.StoreErrors)

	ch <- prometheus.MustNewConstMetric(c.spinSeconds, prometheus.GaugeValue,
		time.Duration(m.AverageSpinTime).Seconds())
}

// Collector returns a Prometheus collector for the wheel's spin counters
func (w *Wheel) Collector() *SpinCollector { return NewSpinCollector(w.monitor, w.ID()) }
