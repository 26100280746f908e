package state

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the collectors updated as the chain changes.
type metrics struct {
	chainHeight    prometheus.Gauge
	mempoolSize    prometheus.Gauge
	blocksMined    prometheus.Counter
	blocksRejected prometheus.Counter
}

// newMetrics constructs the collectors and registers them when a
// registerer is provided.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := metrics{
		chainHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Help:      "Number of blocks in the chain",
				Name:      "chain_height",
				Namespace: "ledger",
			},
		),
		mempoolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Help:      "Number of pending transactions",
				Name:      "mempool_size",
				Namespace: "ledger",
			},
		),
		blocksMined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Help:      "Number of blocks accepted by the consensus hook",
				Name:      "blocks_mined_total",
				Namespace: "ledger",
			},
		),
		blocksRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Help:      "Number of blocks rejected by the consensus hook",
				Name:      "blocks_rejected_total",
				Namespace: "ledger",
			},
		),
	}

	if reg == nil {
		return &m, nil
	}

	collectors := []prometheus.Collector{m.chainHeight, m.mempoolSize, m.blocksMined, m.blocksRejected}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return &m, nil
}
