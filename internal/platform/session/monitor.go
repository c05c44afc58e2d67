package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/websocket"
)

// Event types pushed to the session topic.
const (
	EventWarning   = "session.warning"
	EventCountdown = "session.countdown"
	EventExtended  = "session.extended"
	EventLogout    = "session.logout"
)

// Logout reasons.
const (
	ReasonIdle    = "idle"
	ReasonExpired = "expired"
	ReasonLogout  = "logout"
)

type Config struct {
	// IdleTimeout is how long a session may go without activity before the
	// logout warning opens.
	IdleTimeout time.Duration
	// TTL is the hard session lifetime.
	TTL            time.Duration
	WarningSeconds int
}

type session struct {
	id           string
	userID       string
	companyID    string
	roles        []string
	createdAt    time.Time
	lastActivity time.Time
	expiresAt    time.Time
	warning      *Countdown
}

// View is a point-in-time copy of a session.
type View struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	CompanyID        string    `json:"company_id"`
	Roles            []string  `json:"roles"`
	CreatedAt        time.Time `json:"created_at"`
	LastActivity     time.Time `json:"last_activity"`
	ExpiresAt        time.Time `json:"expires_at"`
	Warning          bool      `json:"warning"`
	WarningRemaining int       `json:"warning_remaining,omitempty"`
}

func (s *session) view() View {
	v := View{
		ID:           s.id,
		UserID:       s.userID,
		CompanyID:    s.companyID,
		Roles:        s.roles,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		ExpiresAt:    s.expiresAt,
	}
	if s.warning != nil && !s.warning.Done() {
		v.Warning = true
		v.WarningRemaining = s.warning.Remaining()
	}
	return v
}

// Monitor tracks open sessions and logs them out after inactivity. Sweep is
// expected to run once per second; each sweep ticks every open warning.
type Monitor struct {
	mu       sync.Mutex
	sessions map[string]*session
	cfg      Config
	pub      websocket.Publisher
	logger   zerolog.Logger
	now      func() time.Time
	onEnd    []func(sessionID string)
	logouts  *prometheus.CounterVec
}

func NewMonitor(cfg Config, pub websocket.Publisher, logger zerolog.Logger) *Monitor {
	if cfg.WarningSeconds <= 0 {
		cfg.WarningSeconds = DefaultCountdown
	}
	return &Monitor{
		sessions: make(map[string]*session),
		cfg:      cfg,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practicehub",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Monitor) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(m.logouts)
}

// OnEnd registers fn to run after any session ends.
func (m *Monitor) OnEnd(fn func(sessionID string)) {
	m.mu.Lock()
	m.onEnd = append(m.onEnd, fn)
	m.mu.Unlock()
}

func (m *Monitor) Start(userID, companyID string, roles []string) View {
	now := m.now()
	s := &session{
		id:           uuid.NewString(),
		userID:       userID,
		companyID:    companyID,
		roles:        roles,
		createdAt:    now,
		lastActivity: now,
	}
	if m.cfg.TTL > 0 {
		s.expiresAt = now.Add(m.cfg.TTL)
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info().Str("session_id", s.id).Str("user_id", userID).Str("company_id", companyID).Msg("session started")
	return s.view()
}

func (m *Monitor) Get(id string) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return View{}, false
	}
	return s.view(), true
}

func (m *Monitor) Active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// Count returns the number of open sessions.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Touch records activity. An open warning goes back to its full length but
// stays open until Extend.
func (m *Monitor) Touch(id string, at time.Time) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	var warning *Countdown
	if ok {
		if at.After(s.lastActivity) {
			s.lastActivity = at
		}
		warning = s.warning
	}
	m.mu.Unlock()

	if warning != nil {
		warning.Reset()
	}
}

// Extend closes the warning and restarts the idle clock.
func (m *Monitor) Extend(id string) (View, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return View{}, false
	}
	s.warning = nil
	s.lastActivity = m.now()
	v := s.view()
	m.mu.Unlock()

	m.publish(id, EventExtended, map[string]interface{}{"last_activity": v.LastActivity})
	return v, true
}

// End removes the session and tells its clients to log out. It returns
// false when the session was already gone.
func (m *Monitor) End(id, reason string) bool {
	return m.end(id, reason, nil)
}

// end removes the session. A non-nil warning limits it to sessions whose
// open warning is still that countdown, so a countdown replaced by Extend
// cannot log the session out.
func (m *Monitor) end(id, reason string, warning *Countdown) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && warning != nil && s.warning != warning {
		ok = false
	}
	if ok {
		delete(m.sessions, id)
	}
	hooks := append([]func(string){}, m.onEnd...)
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.logouts.WithLabelValues(reason).Inc()
	m.logger.Info().Str("session_id", id).Str("user_id", s.userID).Str("reason", reason).Msg("session ended")
	m.publish(id, EventLogout, map[string]string{"reason": reason})
	for _, fn := range hooks {
		fn(id)
	}
	return true
}

// Sweep expires sessions past their TTL, opens a warning for sessions idle
// past the timeout, and ticks open warnings. No callback runs under the
// monitor lock.
func (m *Monitor) Sweep(now time.Time) {
	var expired []string
	var opened []string
	var ticking []*Countdown

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := m.sessions[id]
		switch {
		case !s.expiresAt.IsZero() && !now.Before(s.expiresAt):
			expired = append(expired, id)
		case s.warning != nil:
			ticking = append(ticking, s.warning)
		case m.cfg.IdleTimeout > 0 && now.Sub(s.lastActivity) >= m.cfg.IdleTimeout:
			s.warning = m.newWarning(id)
			opened = append(opened, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.End(id, ReasonExpired)
	}
	for _, w := range ticking {
		w.Tick()
	}
	for _, id := range opened {
		m.publish(id, EventWarning, map[string]int{"remaining": m.cfg.WarningSeconds})
	}
}

func (m *Monitor) newWarning(id string) *Countdown {
	var c *Countdown
	c = NewCountdown(m.cfg.WarningSeconds, func() { m.end(id, ReasonIdle, c) })
	c.OnTick(func(remaining int) {
		if remaining > 0 {
			m.publish(id, EventCountdown, map[string]int{"remaining": remaining})
		}
	})
	return c
}

func (m *Monitor) publish(id, eventType string, data interface{}) {
	if m.pub == nil {
		return
	}
	ev, err := websocket.NewEvent(websocket.SessionTopic(id), eventType, data)
	if err == nil {
		err = m.pub.Publish(context.Background(), ev)
	}
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Str("event", eventType).Msg("publish session event")
	}
}
