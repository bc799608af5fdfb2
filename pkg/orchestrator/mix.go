package orchestrator

import (
	"fmt"

	"github.com/samogod/musegen/pkg/midimix"
)

type MixOptions struct {
	Generated string
	Input     string
	Output    string
	Programs  string
}

type MixResult struct {
	Output      string
	Ranges      []midimix.ProgramRange
	TracksAdded int
}

// RunMix copies the input's tracks whose program falls in the selected ranges
// onto the generated file.
func (o *Orchestrator) RunMix(options MixOptions) (*MixResult, error) {
	if options.Generated == "" || options.Input == "" {
		return nil, fmt.Errorf("both a generated and an input MIDI file are required")
	}
	if options.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	programs := options.Programs
	if programs == "" {
		programs = o.config.Mix.ProgramRanges
	}
	ranges, err := midimix.ParseRanges(programs)
	if err != nil {
		return nil, err
	}

	if DebugLog != nil {
		DebugLog("mixing %s onto %s with programs %s", options.Input, options.Generated, programs)
	}

	added, err := midimix.MixFiles(options.Generated, options.Input, options.Output, ranges)
	if err != nil {
		return nil, err
	}

	if added == 0 {
		o.logger.Warnf("No tracks of %s matched programs %s", options.Input, programs)
	}

	return &MixResult{
		Output:      options.Output,
		Ranges:      ranges,
		TracksAdded: added,
	}, nil
}
