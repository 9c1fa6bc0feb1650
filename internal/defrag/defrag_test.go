package defrag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/store/sqlite"
	"github.com/scrypster/cortex/pkg/types"
)

type captureSink struct {
	alerts []*types.Alert
}

func (c *captureSink) Publish(_ context.Context, alert *types.Alert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

func newAnalyzer(t *testing.T) (*Analyzer, *sqlite.KnowledgeStore, *captureSink) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sink := &captureSink{}
	return New(st, sink), st, sink
}

func addEvent(t *testing.T, st *sqlite.KnowledgeStore, id, title string, start time.Time, minutes int, moveable bool) {
	t.Helper()
	require.NoError(t, st.UpsertEvent(context.Background(), &types.CalendarEvent{
		ID: id, Title: title,
		Start: start, End: start.Add(time.Duration(minutes) * time.Minute),
		Moveable: moveable,
	}))
}

func TestAnalyzeDayFragmentedSchedule(t *testing.T) {
	an, st, sink := newAnalyzer(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// Three 20-minute dead gaps: 60 minutes of dead time total.
	addEvent(t, st, "e1", "Standup", at(9, 0), 30, false)
	addEvent(t, st, "e2", "Design review", at(9, 50), 40, true)
	addEvent(t, st, "e3", "1:1", at(10, 50), 30, false)
	addEvent(t, st, "e4", "Planning", at(11, 40), 50, false)

	raised, err := an.AnalyzeDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	require.Len(t, sink.alerts, 1)
	alert := sink.alerts[0]
	assert.Equal(t, types.AlertScheduleOptimization, alert.Type)
	assert.Equal(t, types.UrgencyLow, alert.Urgency)
	assert.Equal(t, "CONSOLIDATION", alert.Metadata["suggestion"])
	assert.Equal(t, "e2", alert.Metadata["event_id"], "first moveable event")
	assert.Equal(t, "60", alert.Metadata["dead_minutes"])

	// Proposed slot is 15 minutes after the last event ends (12:30).
	slot, err := time.Parse(time.RFC3339, alert.Metadata["suggested_slot"])
	require.NoError(t, err)
	assert.Equal(t, at(12, 45), slot.UTC())
}

func TestAnalyzeDayBackToBackSchedule(t *testing.T) {
	an, st, sink := newAnalyzer(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// Four meetings with zero or near-zero buffers: three tight transitions.
	addEvent(t, st, "e1", "Sync A", at(9, 0), 60, false)
	addEvent(t, st, "e2", "Sync B", at(10, 0), 60, false)
	addEvent(t, st, "e3", "Sync C", at(11, 2), 58, false)
	addEvent(t, st, "e4", "Sync D", at(12, 0), 30, false)

	raised, err := an.AnalyzeDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "BUFFER_WARNING", sink.alerts[0].Metadata["suggestion"])
	assert.Equal(t, "3", sink.alerts[0].Metadata["transitions"])
}

func TestAnalyzeDayNoMoveableEvent(t *testing.T) {
	an, st, sink := newAnalyzer(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// Same fragmentation, but nothing can move: no suggestion possible.
	addEvent(t, st, "e1", "Standup", at(9, 0), 30, false)
	addEvent(t, st, "e2", "Review", at(9, 50), 40, false)
	addEvent(t, st, "e3", "1:1", at(10, 50), 30, false)
	addEvent(t, st, "e4", "Planning", at(11, 40), 50, false)

	raised, err := an.AnalyzeDay(context.Background(), day)
	require.NoError(t, err)
	assert.Zero(t, raised)
	assert.Empty(t, sink.alerts)
}

func TestAnalyzeDayHealthySchedule(t *testing.T) {
	an, st, sink := newAnalyzer(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// Generous gaps are deep-work time, not fragmentation.
	addEvent(t, st, "e1", "Standup", at(9, 0), 30, false)
	addEvent(t, st, "e2", "Design", at(11, 0), 60, true)
	addEvent(t, st, "e3", "Retro", at(15, 0), 60, false)

	raised, err := an.AnalyzeDay(context.Background(), day)
	require.NoError(t, err)
	assert.Zero(t, raised)
	assert.Empty(t, sink.alerts)
}
