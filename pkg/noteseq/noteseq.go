// Package noteseq carries the note sequences returned by the sampler and
// renders them as Standard MIDI Files.
package noteseq

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	DefaultQPM             = 120.0
	DefaultTicksPerQuarter = 220
	DrumChannel            = 9
)

type Note struct {
	Pitch      int     `json:"pitch"`
	Velocity   int     `json:"velocity"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Instrument int     `json:"instrument"`
	Program    int     `json:"program"`
	IsDrum     bool    `json:"is_drum"`
}

// NoteSequence times notes in seconds. QPM and TicksPerQuarter fall back to
// DefaultQPM and DefaultTicksPerQuarter when zero.
type NoteSequence struct {
	Notes           []Note  `json:"notes"`
	TotalTime       float64 `json:"total_time"`
	QPM             float64 `json:"qpm,omitempty"`
	TicksPerQuarter int     `json:"ticks_per_quarter,omitempty"`
}

func (ns *NoteSequence) Validate() error {
	if ns.QPM < 0 {
		return fmt.Errorf("invalid qpm %v", ns.QPM)
	}
	if ns.TicksPerQuarter < 0 || ns.TicksPerQuarter > math.MaxInt16 {
		return fmt.Errorf("invalid ticks per quarter %d", ns.TicksPerQuarter)
	}
	for i, n := range ns.Notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return fmt.Errorf("note %d: pitch %d out of range", i, n.Pitch)
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			return fmt.Errorf("note %d: velocity %d out of range", i, n.Velocity)
		}
		if n.Program < 0 || n.Program > 127 {
			return fmt.Errorf("note %d: program %d out of range", i, n.Program)
		}
		if n.StartTime < 0 || n.EndTime < n.StartTime {
			return fmt.Errorf("note %d: invalid time span %v-%v", i, n.StartTime, n.EndTime)
		}
	}
	return nil
}

func (ns *NoteSequence) qpm() float64 {
	if ns.QPM > 0 {
		return ns.QPM
	}
	return DefaultQPM
}

func (ns *NoteSequence) resolution() int {
	if ns.TicksPerQuarter > 0 {
		return ns.TicksPerQuarter
	}
	return DefaultTicksPerQuarter
}

func (ns *NoteSequence) ticks(seconds float64) uint32 {
	return uint32(math.Round(seconds * ns.qpm() / 60 * float64(ns.resolution())))
}

type part struct {
	Instrument int
	Program    int
	IsDrum     bool
}

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// ToSMF renders the sequence as a format 1 file: a tempo track followed by one
// track per (instrument, program, drum) part.
func (ns *NoteSequence) ToSMF() (*smf.SMF, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ns.resolution())

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(ns.qpm()))
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return nil, fmt.Errorf("failed to add tempo track: %w", err)
	}

	groups := make(map[part][]Note)
	for _, n := range ns.Notes {
		key := part{Instrument: n.Instrument, Program: n.Program, IsDrum: n.IsDrum}
		groups[key] = append(groups[key], n)
	}

	parts := make([]part, 0, len(groups))
	for p := range groups {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Instrument != parts[j].Instrument {
			return parts[i].Instrument < parts[j].Instrument
		}
		if parts[i].Program != parts[j].Program {
			return parts[i].Program < parts[j].Program
		}
		return !parts[i].IsDrum && parts[j].IsDrum
	})

	nextChannel := uint8(0)
	for _, p := range parts {
		channel := uint8(DrumChannel)
		if !p.IsDrum {
			if nextChannel == DrumChannel {
				nextChannel++
			}
			if nextChannel > 15 {
				return nil, fmt.Errorf("too many melodic parts: no MIDI channel left for instrument %d", p.Instrument)
			}
			channel = nextChannel
			nextChannel++
		}

		if err := s.Add(ns.partTrack(p, channel, groups[p])); err != nil {
			return nil, fmt.Errorf("failed to add track for instrument %d: %w", p.Instrument, err)
		}
	}

	return s, nil
}

func (ns *NoteSequence) partTrack(p part, channel uint8, notes []Note) smf.Track {
	var track smf.Track
	name := fmt.Sprintf("instrument %d", p.Instrument)
	if p.IsDrum {
		name += " (drums)"
	}
	track.Add(0, smf.MetaTrackSequenceName(name))
	if !p.IsDrum {
		track.Add(0, midi.ProgramChange(channel, uint8(p.Program)))
	}

	events := make([]timedMessage, 0, 2*len(notes))
	for _, n := range notes {
		start, end := ns.ticks(n.StartTime), ns.ticks(n.EndTime)
		if end <= start {
			end = start + 1
		}
		events = append(events,
			timedMessage{tick: start, msg: midi.NoteOn(channel, uint8(n.Pitch), uint8(n.Velocity))},
			timedMessage{tick: end, off: true, msg: midi.NoteOff(channel, uint8(n.Pitch))},
		)
	}
	// note-offs first so a repeated pitch is released before it sounds again
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var last uint32
	for _, ev := range events {
		track.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	track.Close(0)
	return track
}

// WriteFile writes the sequence to path as a Standard MIDI File.
func (ns *NoteSequence) WriteFile(path string) error {
	s, err := ns.ToSMF()
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
