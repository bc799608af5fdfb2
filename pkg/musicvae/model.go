package musicvae

// MusicVAE pairs an encoder with a decoder.
type MusicVAE struct {
	Encoder Descriptor `json:"encoder"`
	Decoder Descriptor `json:"decoder"`
}

func (MusicVAE) Kind() string { return "MusicVAE" }

func (m MusicVAE) Clone() Descriptor {
	return MusicVAE{Encoder: Clone(m.Encoder), Decoder: Clone(m.Decoder)}
}

func (m MusicVAE) MarshalJSON() ([]byte, error) {
	type params MusicVAE
	return marshalKind(m.Kind(), params(m))
}

type BidirectionalLstmEncoder struct{}

func (BidirectionalLstmEncoder) Kind() string { return "BidirectionalLstmEncoder" }

func (e BidirectionalLstmEncoder) Clone() Descriptor { return e }

func (e BidirectionalLstmEncoder) MarshalJSON() ([]byte, error) {
	return marshalKind(e.Kind(), nil)
}

type CategoricalLstmDecoder struct{}

func (CategoricalLstmDecoder) Kind() string { return "CategoricalLstmDecoder" }

func (d CategoricalLstmDecoder) Clone() Descriptor { return d }

func (d CategoricalLstmDecoder) MarshalJSON() ([]byte, error) {
	return marshalKind(d.Kind(), nil)
}

// SplitMultiOutLstmDecoder runs one core decoder per output slice. OutputDepths
// lines up with CoreDecoders.
type SplitMultiOutLstmDecoder struct {
	CoreDecoders []Descriptor `json:"core_decoders"`
	OutputDepths []int        `json:"output_depths"`
}

func (SplitMultiOutLstmDecoder) Kind() string { return "SplitMultiOutLstmDecoder" }

func (d SplitMultiOutLstmDecoder) Clone() Descriptor {
	var cores []Descriptor
	if d.CoreDecoders != nil {
		cores = make([]Descriptor, len(d.CoreDecoders))
		for i, core := range d.CoreDecoders {
			cores[i] = Clone(core)
		}
	}
	return SplitMultiOutLstmDecoder{CoreDecoders: cores, OutputDepths: cloneInts(d.OutputDepths)}
}

func (d SplitMultiOutLstmDecoder) MarshalJSON() ([]byte, error) {
	type params SplitMultiOutLstmDecoder
	return marshalKind(d.Kind(), params(d))
}

type HierarchicalLstmDecoder struct {
	Core                  Descriptor `json:"core_decoder"`
	LevelLengths          []int      `json:"level_lengths"`
	DisableAutoregression bool       `json:"disable_autoregression"`
}

func (HierarchicalLstmDecoder) Kind() string { return "HierarchicalLstmDecoder" }

func (d HierarchicalLstmDecoder) Clone() Descriptor {
	d.Core = Clone(d.Core)
	d.LevelLengths = cloneInts(d.LevelLengths)
	return d
}

func (d HierarchicalLstmDecoder) MarshalJSON() ([]byte, error) {
	type params HierarchicalLstmDecoder
	return marshalKind(d.Kind(), params(d))
}
