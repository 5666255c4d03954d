package dashboard

import (
	"context"
	"sync"

	"github.com/dtroode/healping/internal/fetch"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
	"github.com/dtroode/healping/internal/realtime"
)

// StateWatcher publishes session state snapshots.
type StateWatcher interface {
	Watch(ctx context.Context) <-chan model.State
}

// ChangeSubscriber delivers row changes of a notification channel.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, channel string, filter realtime.Filter, handler model.ChangeHandler) (model.Subscription, error)
}

// StatsLoader loads clinic counters for a profile.
type StatsLoader interface {
	Stats(ctx context.Context, profile *model.Profile) fetch.Result[model.DashboardStats]
}

// View is the live dashboard of the signed-in profile.
type View struct {
	ClinicID string               `json:"clinic_id,omitempty"`
	Stats    model.DashboardStats `json:"stats"`
	Loading  bool                 `json:"loading"`
	Error    string               `json:"error,omitempty"`
	Updates  int                  `json:"updates"`
}

// Monitor keeps clinic counters current while a profile with a clinic is signed in.
//
// It follows the session state: a clinic appearing starts a stats fetch and change feed
// subscriptions scoped to it, a clinic change re-subscribes, and sign-out tears everything down.
// Every change refetches the counters. A change that arrives while a fetch is running is
// folded into one follow-up fetch.
type Monitor struct {
	states StateWatcher
	feed   ChangeSubscriber
	stats  StatsLoader
	logger *logger.Logger

	mu       sync.Mutex
	alive    bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	view     View
	profile  *model.Profile
	subs     []model.Subscription
	fetching bool
	pending  bool
}

// NewMonitor creates a Monitor. It does nothing until Start.
func NewMonitor(states StateWatcher, feed ChangeSubscriber, stats StatsLoader, logger *logger.Logger) *Monitor {
	return &Monitor{
		states: states,
		feed:   feed,
		stats:  stats,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start follows state changes until ctx is done or Close is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.alive || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.alive = true
	runCtx := m.ctx
	m.mu.Unlock()

	states := m.states.Watch(runCtx)
	go func() {
		defer close(m.done)
		for {
			select {
			case st, ok := <-states:
				if !ok {
					return
				}
				m.apply(st)
			case <-runCtx.Done():
				return
			}
		}
	}()
}

// Close stops following state and releases subscriptions. Late fetch results are discarded.
func (m *Monitor) Close() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.alive = false
	m.cancel()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	<-m.done
	unsubscribe(subs)
}

// View returns the current dashboard.
func (m *Monitor) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *Monitor) apply(st model.State) {
	if !st.Initialized {
		return
	}

	clinicID := ""
	if st.Profile.HasClinic() {
		clinicID = *st.Profile.ClinicID
	}

	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.profile = st.Profile
	if clinicID == m.view.ClinicID && (clinicID != "" || m.view.Error == noClinicError(st.Profile)) {
		m.mu.Unlock()
		return
	}

	stale := m.subs
	m.subs = nil
	m.pending = false
	m.view = View{ClinicID: clinicID, Loading: clinicID != "", Error: noClinicError(st.Profile)}
	ctx := m.ctx
	m.mu.Unlock()

	unsubscribe(stale)
	if clinicID == "" {
		return
	}

	m.logger.Debug("Monitor: following clinic", "clinic_id", clinicID)
	subs := m.subscribe(ctx, clinicID)

	m.mu.Lock()
	if !m.alive || m.view.ClinicID != clinicID {
		m.mu.Unlock()
		unsubscribe(subs)
		return
	}
	m.subs = subs
	m.mu.Unlock()

	m.refetch(clinicID)
}

func (m *Monitor) subscribe(ctx context.Context, clinicID string) []model.Subscription {
	var subs []model.Subscription
	for _, channel := range []string{realtime.ChannelAppointments, realtime.ChannelReminders} {
		sub, err := m.feed.Subscribe(ctx, channel, realtime.ClinicFilter(clinicID), func(model.Change) {
			m.onChange(clinicID)
		})
		if err != nil {
			m.logger.Warn("Monitor: failed to subscribe", "channel", channel, "clinic_id", clinicID, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

func (m *Monitor) onChange(clinicID string) {
	m.mu.Lock()
	if !m.alive || m.view.ClinicID != clinicID {
		m.mu.Unlock()
		return
	}
	m.view.Updates++
	m.mu.Unlock()

	m.refetch(clinicID)
}

func (m *Monitor) refetch(clinicID string) {
	m.mu.Lock()
	if !m.alive || m.view.ClinicID != clinicID {
		m.mu.Unlock()
		return
	}
	if m.fetching {
		m.pending = true
		m.mu.Unlock()
		return
	}
	m.fetching = true
	profile := m.profile
	ctx := m.ctx
	m.mu.Unlock()

	go func() {
		res := m.stats.Stats(ctx, profile)

		m.mu.Lock()
		m.fetching = false
		again := m.pending
		m.pending = false
		current := m.view.ClinicID
		if !m.alive {
			m.mu.Unlock()
			return
		}
		if current == clinicID {
			m.view.Loading = false
			if res.OK() {
				m.view.Stats = res.Data
				m.view.Error = ""
			} else {
				m.logger.Warn("Monitor: failed to load stats", "clinic_id", clinicID, "error", res.Error)
				m.view.Error = MsgLoadFailed
			}
		}
		m.mu.Unlock()

		if again {
			m.refetch(current)
		}
	}()
}

func noClinicError(profile *model.Profile) string {
	if profile != nil && !profile.HasClinic() {
		return MsgNoClinic
	}
	return ""
}

func unsubscribe(subs []model.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
