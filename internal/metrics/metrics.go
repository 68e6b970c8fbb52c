package metrics

import (
	"sync"
	"time"
)

// ewmaAlpha is the smoothing factor for the per-site response time average.
const ewmaAlpha = 0.2

type Metrics struct {
	mutex        sync.RWMutex
	checks       map[string]int64
	statuses     map[string]map[string]int64
	ewmaResponse map[string]time.Duration
	hasEWMA      map[string]bool
	rounds       int64
	lastPassed   int
	lastFailed   int
	startTime    time.Time
}

type Snapshot struct {
	Uptime     time.Duration          `json:"uptime"`
	Rounds     int64                  `json:"rounds"`
	LastPassed int                    `json:"last_round_passed"`
	LastFailed int                    `json:"last_round_failed"`
	Sites      map[string]SiteMetrics `json:"sites"`
}

type SiteMetrics struct {
	Checks       int64            `json:"checks"`
	Statuses     map[string]int64 `json:"statuses"`
	EWMAResponse time.Duration    `json:"ewma_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		checks:       make(map[string]int64),
		statuses:     make(map[string]map[string]int64),
		ewmaResponse: make(map[string]time.Duration),
		hasEWMA:      make(map[string]bool),
		startTime:    time.Now(),
	}
}

// RecordCheck counts one completed check for a site and folds its response
// time into the exponentially weighted moving average.
func (m *Metrics) RecordCheck(site, status string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.checks[site]++

	if m.statuses[site] == nil {
		m.statuses[site] = make(map[string]int64)
	}
	m.statuses[site][status]++

	if duration <= 0 {
		return
	}
	if !m.hasEWMA[site] {
		m.ewmaResponse[site] = duration
		m.hasEWMA[site] = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	m.ewmaResponse[site] = time.Duration((1-ewmaAlpha)*float64(m.ewmaResponse[site]) + ewmaAlpha*float64(duration))
}

// RecordRound counts one completed round and keeps its pass/fail summary.
func (m *Metrics) RecordRound(passed, failed int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rounds++
	m.lastPassed = passed
	m.lastFailed = failed
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sites := make(map[string]SiteMetrics, len(m.checks))
	for site, count := range m.checks {
		statuses := make(map[string]int64, len(m.statuses[site]))
		for status, n := range m.statuses[site] {
			statuses[status] = n
		}
		sites[site] = SiteMetrics{
			Checks:       count,
			Statuses:     statuses,
			EWMAResponse: m.ewmaResponse[site],
		}
	}

	return Snapshot{
		Uptime:     time.Since(m.startTime),
		Rounds:     m.rounds,
		LastPassed: m.lastPassed,
		LastFailed: m.lastFailed,
		Sites:      sites,
	}
}
