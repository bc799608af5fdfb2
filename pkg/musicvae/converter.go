package musicvae

// TrioConverter slices multi-instrument sequences into melody, bass and drum
// tensors.
type TrioConverter struct {
	StepsPerQuarter int `json:"steps_per_quarter"`
	SliceBars       int `json:"slice_bars"`
	GapBars         int `json:"gap_bars"`
}

func (TrioConverter) Kind() string { return "TrioConverter" }

func (c TrioConverter) Clone() Descriptor { return c }

func (c TrioConverter) MarshalJSON() ([]byte, error) {
	type params TrioConverter
	return marshalKind(c.Kind(), params(c))
}

type OneHotMelodyConverter struct {
	ValidPrograms   []int `json:"valid_programs,omitempty"`
	SkipPolyphony   bool  `json:"skip_polyphony"`
	MaxBars         int   `json:"max_bars"`
	SliceBars       int   `json:"slice_bars"`
	StepsPerQuarter int   `json:"steps_per_quarter"`
}

func (OneHotMelodyConverter) Kind() string { return "OneHotMelodyConverter" }

func (c OneHotMelodyConverter) Clone() Descriptor {
	c.ValidPrograms = cloneInts(c.ValidPrograms)
	return c
}

func (c OneHotMelodyConverter) MarshalJSON() ([]byte, error) {
	type params OneHotMelodyConverter
	return marshalKind(c.Kind(), params(c))
}

// NoteSequenceAugmenter randomly transposes (semitones) and stretches (tempo
// factor) training sequences.
type NoteSequenceAugmenter struct {
	TransposeRange [2]int     `json:"transpose_range"`
	StretchRange   [2]float64 `json:"stretch_range"`
}

func (NoteSequenceAugmenter) Kind() string { return "NoteSequenceAugmenter" }

func (a NoteSequenceAugmenter) Clone() Descriptor { return a }

func (a NoteSequenceAugmenter) MarshalJSON() ([]byte, error) {
	type params NoteSequenceAugmenter
	return marshalKind(a.Kind(), params(a))
}

// MelodyPrograms returns the General MIDI programs treated as melodic:
// pianos, chromatic percussion, organs, guitars, reeds, pipes and synth leads.
func MelodyPrograms() []int {
	return programRanges([2]int{0, 31}, [2]int{64, 87})
}

func programRanges(ranges ...[2]int) []int {
	var out []int
	for _, r := range ranges {
		for p := r[0]; p <= r[1]; p++ {
			out = append(out, p)
		}
	}
	return out
}
