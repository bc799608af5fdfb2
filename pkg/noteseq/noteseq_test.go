package noteseq

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func trioSequence() NoteSequence {
	return NoteSequence{
		Notes: []Note{
			{Pitch: 72, Velocity: 80, StartTime: 0, EndTime: 0.5, Instrument: 0, Program: 0},
			{Pitch: 74, Velocity: 80, StartTime: 0.5, EndTime: 1.0, Instrument: 0, Program: 0},
			{Pitch: 36, Velocity: 90, StartTime: 0, EndTime: 1.0, Instrument: 1, Program: 33},
			{Pitch: 36, Velocity: 100, StartTime: 0, EndTime: 0.125, Instrument: 9, IsDrum: true},
			{Pitch: 42, Velocity: 100, StartTime: 0.25, EndTime: 0.375, Instrument: 9, IsDrum: true},
		},
		TotalTime: 1.0,
	}
}

type trackSummary struct {
	notes    int
	channel  uint8
	program  int
	lastTick uint32
}

func summarize(track smf.Track) trackSummary {
	sum := trackSummary{program: -1}
	var tick uint32
	for _, ev := range track {
		tick += ev.Delta
		var ch, key, vel, prog uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
			sum.notes++
			sum.channel = ch
		case msg.GetProgramChange(&ch, &prog):
			sum.program = int(prog)
		}
	}
	sum.lastTick = tick
	return sum
}

func TestToSMF(t *testing.T) {
	ns := trioSequence()
	s, err := ns.ToSMF()
	require.NoError(t, err)

	assert.Equal(t, smf.MetricTicks(DefaultTicksPerQuarter), s.TimeFormat)
	require.Len(t, s.Tracks, 4)

	melody := summarize(s.Tracks[1])
	assert.Equal(t, 2, melody.notes)
	assert.Equal(t, uint8(0), melody.channel)
	assert.Equal(t, 0, melody.program)
	// one second at 120 qpm is two quarters
	assert.Equal(t, uint32(2*DefaultTicksPerQuarter), melody.lastTick)

	bass := summarize(s.Tracks[2])
	assert.Equal(t, 1, bass.notes)
	assert.Equal(t, uint8(1), bass.channel)
	assert.Equal(t, 33, bass.program)

	drums := summarize(s.Tracks[3])
	assert.Equal(t, 2, drums.notes)
	assert.Equal(t, uint8(DrumChannel), drums.channel)
	assert.Equal(t, -1, drums.program)
}

func TestToSMFKeepsMelodicPartsOffDrumChannel(t *testing.T) {
	var ns NoteSequence
	for i := 0; i < 15; i++ {
		ns.Notes = append(ns.Notes, Note{Pitch: 60, Velocity: 80, EndTime: 0.5, Instrument: i, Program: i})
	}
	ns.Notes = append(ns.Notes, Note{Pitch: 36, Velocity: 100, EndTime: 0.125, Instrument: 15, IsDrum: true})

	s, err := ns.ToSMF()
	require.NoError(t, err)
	require.Len(t, s.Tracks, 17)

	seen := make(map[uint8]int)
	for _, tr := range s.Tracks[1:] {
		sum := summarize(tr)
		if sum.program < 0 {
			assert.Equal(t, uint8(DrumChannel), sum.channel)
			continue
		}
		assert.NotEqual(t, uint8(DrumChannel), sum.channel, "program %d", sum.program)
		seen[sum.channel]++
	}
	assert.Len(t, seen, 15)

	ns.Notes = append(ns.Notes, Note{Pitch: 62, Velocity: 80, EndTime: 0.5, Instrument: 16, Program: 40})
	_, err = ns.ToSMF()
	assert.ErrorContains(t, err, "too many melodic parts")
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated_sequence_0.mid")
	ns := trioSequence()
	ns.QPM = 90
	ns.TicksPerQuarter = 480

	require.NoError(t, ns.WriteFile(path))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, smf.MetricTicks(480), s.TimeFormat)

	total := 0
	for _, tr := range s.Tracks {
		total += summarize(tr).notes
	}
	assert.Equal(t, len(ns.Notes), total)
}

func TestValidate(t *testing.T) {
	cases := map[string]Note{
		"pitch":    {Pitch: 128, Velocity: 80, EndTime: 1},
		"velocity": {Pitch: 60, Velocity: -1, EndTime: 1},
		"program":  {Pitch: 60, Velocity: 80, EndTime: 1, Program: 200},
		"span":     {Pitch: 60, Velocity: 80, StartTime: 2, EndTime: 1},
	}
	for name, n := range cases {
		t.Run(name, func(t *testing.T) {
			ns := NoteSequence{Notes: []Note{n}}
			_, err := ns.ToSMF()
			assert.Error(t, err)
		})
	}
}

func TestDecodeSamplerJSON(t *testing.T) {
	raw := `{"notes":[{"pitch":60,"velocity":100,"start_time":0,"end_time":0.5,"instrument":2,"program":33,"is_drum":false}],"total_time":0.5,"qpm":100}`

	var ns NoteSequence
	require.NoError(t, json.Unmarshal([]byte(raw), &ns))
	assert.Equal(t, 100.0, ns.QPM)
	require.Len(t, ns.Notes, 1)
	assert.Equal(t, 33, ns.Notes[0].Program)
}
