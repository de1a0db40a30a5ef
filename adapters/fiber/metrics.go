package fiber

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lborres/agenda"
	"github.com/lborres/agenda/core"
)

const namespace = "agenda"

var phases = []core.Phase{core.PhaseUnbootstrapped, core.PhaseAnonymous, core.PhaseAuthenticated}

// Metrics exposes the session phase, the entity store sizes and the guard
// decisions of one Agenda.
type Metrics struct {
	registry  *prometheus.Registry
	phase     *prometheus.GaugeVec
	decisions *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry, a *agenda.Agenda) (*Metrics, error) {
	m := &Metrics{
		registry: reg,
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_phase",
			Help:      "1 for the current session phase, 0 otherwise.",
		}, []string{"phase"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Navigation guard decisions by route and outcome.",
		}, []string{"route", "outcome"}),
	}

	collectors := []prometheus.Collector{m.phase, m.decisions}
	collectors = append(collectors,
		storeCollectors(a.Stores.Events.Name(), a.Stores.Events.Len, a.Stores.Events.Stats)...)
	collectors = append(collectors,
		storeCollectors(a.Stores.Locations.Name(), a.Stores.Locations.Len, a.Stores.Locations.Stats)...)
	collectors = append(collectors,
		storeCollectors(a.Stores.Users.Name(), a.Stores.Users.Len, a.Stores.Users.Stats)...)

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	m.setPhase(a.Session.State().Phase())
	a.Session.OnChange(func(state agenda.SessionState) {
		m.setPhase(state.Phase())
	})

	return m, nil
}

func storeCollectors(name string, size func() int, stats func() core.StoreStats) []prometheus.Collector {
	labels := prometheus.Labels{"store": name}
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "store_entries",
			Help:        "Entries held by an entity store.",
			ConstLabels: labels,
		}, func() float64 { return float64(size()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "store_rejected_total",
			Help:        "Writes rejected because an entity had no id.",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Rejected) }),
	}
}

func (m *Metrics) setPhase(current core.Phase) {
	for _, p := range phases {
		value := 0.0
		if p == current {
			value = 1
		}
		m.phase.WithLabelValues(p.String()).Set(value)
	}
}

func (m *Metrics) observe(route agenda.RouteName, d agenda.Decision) {
	outcome := "proceed"
	if !d.Proceed() {
		outcome = "redirect_" + string(d.Redirect)
	}
	m.decisions.WithLabelValues(string(route), outcome).Inc()
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
