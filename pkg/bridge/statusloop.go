// ABOUTME: Change-driven status publisher for the device bridge
// ABOUTME: Polls the player, coalesces triggers, publishes retained state
package bridge

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
)

// statusLoop ensures subscribers observe player-state changes with bounded
// latency. One timer drives three threshold checks: immediate triggers on
// field changes, a position cadence while playing, and a periodic full
// refresh. Multiple triggers within a tick coalesce into one publish.
type statusLoop struct {
	getStatus func() (player.State, error)
	transport broker.Transport
	topics    broker.Topics
	qos       byte
	log       zerolog.Logger

	updateInterval   time.Duration
	positionInterval time.Duration
	fullInterval     time.Duration

	mu            sync.Mutex
	lastPublished *player.State
	lastPublishAt time.Time // monotonic

	poke chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newStatusLoop(getStatus func() (player.State, error), t broker.Transport, topics broker.Topics, cfg broker.Config) *statusLoop {
	return &statusLoop{
		getStatus:        getStatus,
		transport:        t,
		topics:           topics,
		qos:              cfg.DefaultQoS,
		log:              cfg.Logger.With().Str("component", "status").Logger(),
		updateInterval:   cfg.UpdateInterval,
		positionInterval: cfg.PositionUpdateInterval,
		fullInterval:     cfg.FullUpdateInterval,
		poke:             make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
}

func (l *statusLoop) start() {
	l.wg.Add(1)
	go l.run()
}

func (l *statusLoop) stop() {
	close(l.done)
	l.wg.Wait()
}

// forceRefresh schedules an immediate tick, used after state-mutating
// commands so clients see the effect without waiting a full interval.
func (l *statusLoop) forceRefresh() {
	select {
	case l.poke <- struct{}{}:
	default:
	}
}

func (l *statusLoop) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.tick(false)
		case <-l.poke:
			l.tick(true)
		case <-l.done:
			return
		}
	}
}

// tick polls the player once and publishes at most one state envelope.
// Failures skip the tick: stale state is never published, and the retained
// last state on the broker stays authoritative.
func (l *statusLoop) tick(forced bool) {
	if l.transport.State() != broker.ConnConnected {
		return
	}
	st, err := l.getStatus()
	if err != nil {
		l.log.Warn().Err(err).Msg("status poll failed, skipping tick")
		return
	}
	st.Normalize()

	l.mu.Lock()
	last := l.lastPublished
	elapsed := time.Since(l.lastPublishAt)
	l.mu.Unlock()

	if !forced && last != nil && !shouldPublish(*last, st, elapsed, l.positionInterval, l.fullInterval) {
		return
	}
	l.publish(st)
}

// shouldPublish evaluates the three publish triggers against the last
// published snapshot.
func shouldPublish(last, cur player.State, sinceLast time.Duration, positionInterval, fullInterval time.Duration) bool {
	// Immediate triggers: any field change a client must see right away.
	if cur.State != last.State ||
		songFile(cur.CurrentSong) != songFile(last.CurrentSong) ||
		cur.Volume != last.Volume ||
		cur.Repeat != last.Repeat ||
		cur.Random != last.Random ||
		cur.Playlist != last.Playlist {
		return true
	}
	// Position cadence while playing.
	if cur.State == player.StatePlaying && sinceLast >= positionInterval {
		return true
	}
	// Periodic full refresh regardless of change.
	return sinceLast >= fullInterval
}

func songFile(s *player.Song) string {
	if s == nil {
		return ""
	}
	return s.File
}

// publish sends the full snapshot retained; the last-published marker only
// advances on success so a failed publish retries next tick.
func (l *statusLoop) publish(st player.State) {
	payload, err := broker.Encode(broker.NewState(st))
	if err != nil {
		l.log.Error().Err(err).Msg("encode state")
		return
	}
	if err := l.transport.Publish(l.topics.State(), payload, l.qos, true); err != nil {
		l.log.Warn().Err(err).Msg("publish state")
		return
	}
	l.mu.Lock()
	l.lastPublished = &st
	l.lastPublishAt = time.Now()
	l.mu.Unlock()
}
