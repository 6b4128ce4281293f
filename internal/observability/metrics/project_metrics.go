package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProjectMetrics counts customer-project operations and tracks the
// expiry backlog exported by the retention worker.
type ProjectMetrics struct {
	projectsCreated  prometheus.Counter
	versionsAppended prometheus.Counter
	writeConflicts   *prometheus.CounterVec
	orderEvents      *prometheus.CounterVec
	placeRefresh     *prometheus.CounterVec
	activeProjects   prometheus.Gauge
	expiredProjects  prometheus.Gauge
	oldestExpiredAge prometheus.Gauge
}

var (
	projectMetricsOnce sync.Once
	projectMetrics     *ProjectMetrics
)

// Project returns the process-wide project metrics, registering them on
// first use.
func Project() *ProjectMetrics {
	return ProjectWithConfig(Config{})
}

func ProjectWithConfig(cfg Config) *ProjectMetrics {
	projectMetricsOnce.Do(func() {
		projectMetrics = newProjectMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return projectMetrics
}

// ResetProjectMetricsForTest clears the singleton between test runs.
func ResetProjectMetricsForTest() {
	projectMetricsOnce = sync.Once{}
	projectMetrics = nil
}

func newProjectMetrics(registerer prometheus.Registerer, cfg Config) *ProjectMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": cfg.serviceName(),
		"env":     environment,
	}

	projectsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "customer_projects_created_total",
		Help:        "Total customer projects created through the upsert path.",
		ConstLabels: constLabels,
	})

	versionsAppended := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "customer_project_versions_appended_total",
		Help:        "Total versions appended to existing customer projects.",
		ConstLabels: constLabels,
	})

	writeConflicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customer_project_write_conflicts_total",
			Help:        "Optimistic write conflicts detected by modified-count checks.",
			ConstLabels: constLabels,
		},
		[]string{"op"}, // upsert | update | delete | order_event
	)

	orderEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customer_project_order_events_total",
			Help:        "Order notifications applied to customer projects.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // applied | not_found | failed
	)

	placeRefresh := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "google_place_refresh_total",
			Help:        "Read-through refreshes of the Google Places cache.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // hit | refreshed | failed
	)

	activeProjects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "customer_projects_active_total",
		Help:        "Customer projects that are not soft-deleted.",
		ConstLabels: constLabels,
	})

	expiredProjects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "customer_projects_expired_total",
		Help:        "Active customer projects whose available_until has passed.",
		ConstLabels: constLabels,
	})

	oldestExpiredAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "customer_projects_oldest_expired_seconds",
		Help:        "Age of the longest-expired active customer project.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		projectsCreated,
		versionsAppended,
		writeConflicts,
		orderEvents,
		placeRefresh,
		activeProjects,
		expiredProjects,
		oldestExpiredAge,
	)

	return &ProjectMetrics{
		projectsCreated:  projectsCreated,
		versionsAppended: versionsAppended,
		writeConflicts:   writeConflicts,
		orderEvents:      orderEvents,
		placeRefresh:     placeRefresh,
		activeProjects:   activeProjects,
		expiredProjects:  expiredProjects,
		oldestExpiredAge: oldestExpiredAge,
	}
}

func (m *ProjectMetrics) IncProjectCreated() {
	if m == nil {
		return
	}
	m.projectsCreated.Inc()
}

func (m *ProjectMetrics) IncVersionAppended() {
	if m == nil {
		return
	}
	m.versionsAppended.Inc()
}

func (m *ProjectMetrics) IncWriteConflict(op string) {
	if m == nil {
		return
	}
	m.writeConflicts.WithLabelValues(op).Inc()
}

func (m *ProjectMetrics) IncOrderEvent(result string) {
	if m == nil {
		return
	}
	m.orderEvents.WithLabelValues(result).Inc()
}

func (m *ProjectMetrics) IncPlaceRefresh(result string) {
	if m == nil {
		return
	}
	m.placeRefresh.WithLabelValues(result).Inc()
}

func (m *ProjectMetrics) SetActiveProjects(value int64) {
	if m == nil {
		return
	}
	m.activeProjects.Set(float64(value))
}

func (m *ProjectMetrics) SetExpiredProjects(value int64) {
	if m == nil {
		return
	}
	m.expiredProjects.Set(float64(value))
}

func (m *ProjectMetrics) SetOldestExpiredAge(age time.Duration) {
	if m == nil {
		return
	}
	seconds := age.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.oldestExpiredAge.Set(seconds)
}
