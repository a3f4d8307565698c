package whisperx

import "strconv"

// Config selects the model and hardware for a transcription run.
type Config struct {
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" (default) or "pyannote". Pyannote needs HFToken.
	VADMethod string
	HFToken   string
	// UVXBinary overrides the uvx launcher found on PATH.
	UVXBinary string
	// Tuning overrides the decoding parameters; zero fields use defaults.
	Tuning Tuning
}

// Tuning holds the decoding parameters passed to whisperx. They favour short
// sentence-sized segments, which map cleanly onto subtitle cues.
type Tuning struct {
	BatchSize   int
	ChunkSize   int
	BeamSize    int
	VADOnset    float64
	VADOffset   float64
	Temperature float64
}

var defaultTuning = Tuning{
	BatchSize: 4,
	ChunkSize: 15,
	BeamSize:  5,
	VADOnset:  0.08,
	VADOffset: 0.07,
}

func (t Tuning) withDefaults() Tuning {
	if t.BatchSize <= 0 {
		t.BatchSize = defaultTuning.BatchSize
	}
	if t.ChunkSize <= 0 {
		t.ChunkSize = defaultTuning.ChunkSize
	}
	if t.BeamSize <= 0 {
		t.BeamSize = defaultTuning.BeamSize
	}
	if t.VADOnset <= 0 {
		t.VADOnset = defaultTuning.VADOnset
	}
	if t.VADOffset <= 0 {
		t.VADOffset = defaultTuning.VADOffset
	}
	return t
}

func (t Tuning) args() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"--batch_size", strconv.Itoa(t.BatchSize),
		"--chunk_size", strconv.Itoa(t.ChunkSize),
		"--beam_size", strconv.Itoa(t.BeamSize),
		"--vad_onset", f(t.VADOnset),
		"--vad_offset", f(t.VADOffset),
		"--temperature", strconv.FormatFloat(t.Temperature, 'f', 1, 64),
	}
}

const (
	DefaultModel      = "large-v3"
	VADMethodSilero   = "silero"
	VADMethodPyannote = "pyannote"

	pypiIndexURL = "https://pypi.org/simple"
	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	uvxCommand   = "uvx"
)
