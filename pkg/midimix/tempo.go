package midimix

import (
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120.0

type tempoChange struct {
	tick int64
	bpm  float64
}

// tempoMap converts between absolute ticks and microseconds for one file.
type tempoMap struct {
	resolution float64
	changes    []tempoChange
}

func newTempoMap(s *smf.SMF, ticks smf.MetricTicks) tempoMap {
	m := tempoMap{resolution: float64(ticks)}
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				m.changes = append(m.changes, tempoChange{tick: abs, bpm: bpm})
			}
		}
	}

	sort.SliceStable(m.changes, func(i, j int) bool {
		return m.changes[i].tick < m.changes[j].tick
	})
	if len(m.changes) == 0 || m.changes[0].tick > 0 {
		m.changes = append([]tempoChange{{tick: 0, bpm: defaultBPM}}, m.changes...)
	}
	return m
}

func (m tempoMap) microsPerTick(bpm float64) float64 {
	return 60e6 / (bpm * m.resolution)
}

func (m tempoMap) micros(tick int64) float64 {
	var total float64
	for i, c := range m.changes {
		if c.tick >= tick {
			break
		}
		end := tick
		if i+1 < len(m.changes) && m.changes[i+1].tick < tick {
			end = m.changes[i+1].tick
		}
		total += float64(end-c.tick) * m.microsPerTick(c.bpm)
	}
	return total
}

func (m tempoMap) ticks(micros float64) int64 {
	var elapsed float64
	for i, c := range m.changes {
		if i+1 < len(m.changes) {
			span := float64(m.changes[i+1].tick-c.tick) * m.microsPerTick(c.bpm)
			if elapsed+span <= micros {
				elapsed += span
				continue
			}
		}
		return c.tick + int64(math.Round((micros-elapsed)/m.microsPerTick(c.bpm)))
	}
	return 0
}
