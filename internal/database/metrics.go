package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "issueflow",
		Subsystem: "db",
		Name:      "transactions_total",
		Help:      "Number of transactions started",
	})
	txCommits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "issueflow",
		Subsystem: "db",
		Name:      "commits_total",
		Help:      "Number of committed transactions",
	})
	txRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "issueflow",
		Subsystem: "db",
		Name:      "rollbacks_total",
		Help:      "Number of rolled back transactions",
	})
)

// RegisterPoolMetrics exposes database/sql pool statistics (open, idle and
// in-use connections, wait counts) under the given database name.
func RegisterPoolMetrics(reg prometheus.Registerer, db *DB, name string) error {
	return reg.Register(collectors.NewDBStatsCollector(db.DB.DB, name))
}
