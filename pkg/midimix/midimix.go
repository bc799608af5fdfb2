// Package midimix layers instrument tracks from one MIDI file onto another,
// selecting the tracks to carry over by General MIDI program number.
package midimix

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var DebugLog func(string, ...interface{})

const drumChannel = 9

// ProgramRange is an inclusive range of General MIDI program numbers.
type ProgramRange struct {
	Lo int
	Hi int
}

func (r ProgramRange) Contains(program int) bool {
	return program >= r.Lo && program <= r.Hi
}

func (r ProgramRange) String() string {
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

// DefaultRanges selects guitars (25-31) and strings (40-48).
var DefaultRanges = []ProgramRange{
	{Lo: 25, Hi: 31},
	{Lo: 40, Hi: 48},
}

// ParseRanges reads a comma separated list such as "25-31,40-48,52".
func ParseRanges(s string) ([]ProgramRange, error) {
	var ranges []ProgramRange
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(item, "-")
		r := ProgramRange{}
		var err error
		if r.Lo, err = parseProgram(lo); err != nil {
			return nil, err
		}
		r.Hi = r.Lo
		if isRange {
			if r.Hi, err = parseProgram(hi); err != nil {
				return nil, err
			}
		}
		if r.Hi < r.Lo {
			return nil, fmt.Errorf("invalid program range %q", item)
		}
		ranges = append(ranges, r)
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("no program ranges in %q", s)
	}
	return ranges, nil
}

func parseProgram(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid program %q: %w", s, err)
	}
	if p < 0 || p > 127 {
		return 0, fmt.Errorf("program %d out of range 0-127", p)
	}
	return p, nil
}

func inRanges(program int, ranges []ProgramRange) bool {
	for _, r := range ranges {
		if r.Contains(program) {
			return true
		}
	}
	return false
}

// TrackProgram reports the program of the first program change in track (0
// when there is none) and whether the track sounds any note.
func TrackProgram(track smf.Track) (program int, hasNotes bool) {
	programSet := false
	for _, ev := range track {
		var ch, key, vel, prog uint8
		msg := midi.Message(ev.Message)
		if !programSet && msg.GetProgramChange(&ch, &prog) {
			program = int(prog)
			programSet = true
		}
		if msg.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			hasNotes = true
		}
	}
	return program, hasNotes
}

// Mix returns a new file holding every track of base followed by the note
// tracks of overlay whose program falls in ranges. Overlay events keep their
// time in seconds under base's tempo map and resolution, and each carried
// track moves to a channel base does not use. Neither input is modified.
func Mix(base, overlay *smf.SMF, ranges []ProgramRange) (*smf.SMF, int, error) {
	baseTicks, ok := base.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, 0, fmt.Errorf("base file uses unsupported time format %v", base.TimeFormat)
	}
	overlayTicks, ok := overlay.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, 0, fmt.Errorf("overlay file uses unsupported time format %v", overlay.TimeFormat)
	}

	out := smf.New()
	out.TimeFormat = baseTicks

	used := make(map[uint8]bool)
	for i, tr := range base.Tracks {
		for ch := range trackChannels(tr) {
			used[ch] = true
		}
		if err := out.Add(cloneTrack(tr)); err != nil {
			return nil, 0, fmt.Errorf("failed to copy base track %d: %w", i, err)
		}
	}

	from := newTempoMap(overlay, overlayTicks)
	to := newTempoMap(base, baseTicks)

	added := 0
	for i, tr := range overlay.Tracks {
		program, hasNotes := TrackProgram(tr)
		if !hasNotes || !inRanges(program, ranges) {
			continue
		}

		channels, err := assignChannels(trackChannels(tr), used)
		if err != nil {
			return nil, 0, fmt.Errorf("overlay track %d: %w", i, err)
		}
		if DebugLog != nil {
			DebugLog("taking overlay track %d (program %d, channels %v)", i, program, channels)
		}

		if err := out.Add(retimeTrack(tr, from, to, channels)); err != nil {
			return nil, 0, fmt.Errorf("failed to copy overlay track %d: %w", i, err)
		}
		added++
	}

	return out, added, nil
}

func isChannelMessage(msg []byte) bool {
	return len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0
}

func trackChannels(tr smf.Track) map[uint8]bool {
	channels := make(map[uint8]bool)
	for _, ev := range tr {
		if isChannelMessage(ev.Message) {
			channels[ev.Message[0]&0x0F] = true
		}
	}
	return channels
}

// assignChannels maps every channel of a carried track to one that is not in
// used, marking the new ones used. The drum channel stays where it is.
func assignChannels(src map[uint8]bool, used map[uint8]bool) (map[uint8]uint8, error) {
	mapping := make(map[uint8]uint8, len(src))
	for ch := uint8(0); ch < 16; ch++ {
		if !src[ch] {
			continue
		}
		if ch == drumChannel {
			mapping[ch] = drumChannel
			continue
		}
		dst, ok := freeChannel(used)
		if !ok {
			return nil, fmt.Errorf("no free MIDI channel left for channel %d", ch)
		}
		used[dst] = true
		mapping[ch] = dst
	}
	return mapping, nil
}

func freeChannel(used map[uint8]bool) (uint8, bool) {
	for ch := uint8(0); ch < 16; ch++ {
		if ch != drumChannel && !used[ch] {
			return ch, true
		}
	}
	return 0, false
}

func cloneTrack(tr smf.Track) smf.Track {
	out := make(smf.Track, 0, len(tr))
	for _, ev := range tr {
		out = append(out, smf.Event{Delta: ev.Delta, Message: append(smf.Message(nil), ev.Message...)})
	}
	return out
}

// retimeTrack copies tr from the from time base into the to time base,
// rewriting channels through mapping. Tempo events are dropped since the
// result follows the destination tempo map.
func retimeTrack(tr smf.Track, from, to tempoMap, mapping map[uint8]uint8) smf.Track {
	out := make(smf.Track, 0, len(tr))
	var absIn, lastOut int64
	for _, ev := range tr {
		absIn += int64(ev.Delta)
		msg := append(smf.Message(nil), ev.Message...)

		var bpm float64
		if msg.GetMetaTempo(&bpm) {
			continue
		}
		if isChannelMessage(msg) {
			if dst, ok := mapping[msg[0]&0x0F]; ok {
				msg[0] = msg[0]&0xF0 | dst
			}
		}

		absOut := to.ticks(from.micros(absIn))
		if absOut < lastOut {
			absOut = lastOut
		}
		out = append(out, smf.Event{Delta: uint32(absOut - lastOut), Message: msg})
		lastOut = absOut
	}
	return out
}

// MixFiles reads basePath and overlayPath, mixes them and writes outPath. It
// returns the number of overlay tracks carried over.
func MixFiles(basePath, overlayPath, outPath string, ranges []ProgramRange) (int, error) {
	base, err := smf.ReadFile(basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", basePath, err)
	}
	overlay, err := smf.ReadFile(overlayPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", overlayPath, err)
	}

	out, added, err := Mix(base, overlay, ranges)
	if err != nil {
		return 0, err
	}
	if err := out.WriteFile(outPath); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return added, nil
}
