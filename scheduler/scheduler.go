package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/search"
)

// Maintenance runs the recurring housekeeping jobs: a storage health probe
// and a periodic rebuild of the search index from the catalog.
type Maintenance struct {
	DB        database.Persister
	Search    *search.Search
	Scheduler *gocron.Scheduler
	Log       *logger.Logger
}

func New(db database.Persister, s *search.Search, log *logger.Logger) *Maintenance {
	return &Maintenance{DB: db, Search: s, Log: log}
}

func (m *Maintenance) Start() {
	m.Scheduler = gocron.NewScheduler(time.UTC)

	if _, err := m.Scheduler.Every(1).Minute().Do(m.ping); err != nil {
		m.Log.Error().Err(err).Msg("error scheduling the storage probe")
	}

	if _, err := m.Scheduler.Every(15).Minutes().Do(m.Reindex); err != nil {
		m.Log.Error().Err(err).Msg("error scheduling the search reindex")
	}

	m.Scheduler.StartAsync()
}

func (m *Maintenance) Stop() {
	if m.Scheduler != nil {
		m.Scheduler.Stop()
	}
}

func (m *Maintenance) ping() {
	if err := m.DB.Ping(); err != nil {
		m.Log.Error().Err(err).Msg("storage probe failed")
	}
}

// Reindex walks the whole catalog. It runs once at boot to fill the index
// from the persisted catalog, then on the schedule. Catalogs are quota
// bounded so a full sweep stays cheap.
func (m *Maintenance) Reindex() {
	fns, err := m.DB.ListFunctions("", nil)
	if err != nil {
		m.Log.Error().Err(err).Msg("could not list functions for reindex")
		return
	}

	for _, fn := range fns {
		if err := m.Search.Index(fn); err != nil {
			m.Log.Warn().Err(err).Msgf("could not index function %s", fn.Name)
		}
	}
}
