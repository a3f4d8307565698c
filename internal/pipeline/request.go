package pipeline

import (
	"fmt"
	"time"
)

// Operation names a job type.
type Operation string

// Operations, one per endpoint.
const (
	OpCompress     Operation = "compress"
	OpExtractAudio Operation = "extract-mp3"
	OpWatermark    Operation = "watermark"
	OpMerge        Operation = "merge"
	OpConvert      Operation = "convert"
	OpSubtitles    Operation = "subtitles"
)

// Operations lists every supported operation.
func Operations() []Operation {
	return []Operation{OpCompress, OpExtractAudio, OpWatermark, OpMerge, OpConvert, OpSubtitles}
}

// Asset is a media file taking part in a job.
type Asset struct {
	Path string
	// Name is the client-supplied file name, used in output names.
	Name      string
	MIME      string
	Size      int64
	CreatedAt time.Time
	// Owned assets are deleted with the job's other transient files. Files
	// the caller still needs (local CLI inputs) are not owned.
	Owned bool
}

// Request describes one job.
type Request struct {
	// JobID names the job; a UUID is generated when blank.
	JobID     string
	Operation Operation
	Inputs    []Asset
	Watermark *Asset
	Quality   string
	Format    string
	Position  string
}

func (r Request) assets() []Asset {
	out := append([]Asset(nil), r.Inputs...)
	if r.Watermark != nil {
		out = append(out, *r.Watermark)
	}
	return out
}

// CompressionStats reports the size change of a compress job.
type CompressionStats struct {
	OriginalSize     int64  `json:"originalSize"`
	CompressedSize   int64  `json:"compressedSize"`
	CompressionRatio string `json:"compressionRatio"`
}

// Result describes a finished job.
type Result struct {
	JobID     string
	Operation Operation
	// OutputPath is the file on disk; OutputFile is its public reference.
	OutputPath string
	OutputFile string
	FileSize   int64
	Format     string
	Message    string
	Stats      *CompressionStats
	// Subtitles is the number of cues burned in.
	Subtitles int
	// Language is the detected ISO 639-1 language of the subtitles, if any.
	Language string
}

// CompressionRatio formats 1 - out/in as a percentage with two decimals.
// An empty input reports "0.00%".
func CompressionRatio(inputSize, outputSize int64) string {
	if inputSize <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", (1-float64(outputSize)/float64(inputSize))*100)
}
