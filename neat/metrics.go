package neat

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports evolution progress to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	generations        prometheus.Counter
	mutations          *prometheus.CounterVec
	rejectedConnection prometheus.Counter
	bestScore          prometheus.Gauge
	hallOfFameBest     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walkneat_generations_total",
			Help: "Number of generations produced by the evolver.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walkneat_mutations_total",
			Help: "Structural mutations by applied kind.",
		}, []string{"kind"}),
		rejectedConnection: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walkneat_rejected_connections_total",
			Help: "New connection mutations rejected because of a duplicate edge or a cycle.",
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walkneat_best_score",
			Help: "Best score of the last evaluated generation.",
		}),
		hallOfFameBest: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walkneat_hall_of_fame_best_score",
			Help: "Score of the best genome ever retained.",
		}),
	}
	for _, c := range []prometheus.Collector{m.generations, m.mutations, m.rejectedConnection, m.bestScore, m.hallOfFameBest} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeMutation(kind MutationKind) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeRejectedConnection() {
	if m == nil {
		return
	}
	m.rejectedConnection.Inc()
}

func (m *Metrics) observeGeneration(best float64, hallOfFame *HallOfFame) {
	if m == nil {
		return
	}
	m.generations.Inc()
	m.bestScore.Set(best)
	if top, ok := hallOfFame.Best(); ok {
		m.hallOfFameBest.Set(top.Score)
	}
}
