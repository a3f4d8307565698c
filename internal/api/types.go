package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// OperationResponse is returned by a processing endpoint on success.
type OperationResponse struct {
	Success    bool              `json:"success"`
	JobID      string            `json:"jobId"`
	OutputFile string            `json:"outputFile"`
	Message    string            `json:"message,omitempty"`
	FileSize   int64             `json:"fileSize,omitempty"`
	Format     string            `json:"format,omitempty"`
	Stats      *CompressionStats `json:"stats,omitempty"`
	Subtitles  int               `json:"subtitles,omitempty"`
	Language   string            `json:"language,omitempty"`
}

// CompressionStats reports the size change of a compress job.
type CompressionStats struct {
	OriginalSize     int64  `json:"originalSize"`
	CompressedSize   int64  `json:"compressedSize"`
	CompressionRatio string `json:"compressionRatio"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	JobID   string `json:"jobId,omitempty"`
}

// Job describes a job-status row in a transport-friendly format.
type Job struct {
	ID         string  `json:"id"`
	Operation  string  `json:"operation"`
	State      string  `json:"state"`
	Stage      string  `json:"stage,omitempty"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message,omitempty"`
	OutputFile string  `json:"outputFile,omitempty"`
	Error      string  `json:"error,omitempty"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
	FinishedAt string  `json:"finishedAt,omitempty"`
}

// JobListResponse wraps a collection of jobs, newest first.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one environment check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Status aggregates daemon runtime information for API consumers.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Version      string             `json:"version"`
	StartedAt    string             `json:"startedAt,omitempty"`
	Provider     string             `json:"transcriptionProvider"`
	LockFilePath string             `json:"lockFilePath"`
	JobsDatabase string             `json:"jobsDatabase"`
	JobCounts    map[string]int     `json:"jobCounts"`
	Checks       []CheckResult      `json:"checks"`
	Dependencies []DependencyStatus `json:"dependencies"`
	LastSweep    *SweepSummary      `json:"lastSweep,omitempty"`
}

// SweepSummary reports the most recent stale-file sweep.
type SweepSummary struct {
	FinishedAt   string `json:"finishedAt"`
	FilesRemoved int    `json:"filesRemoved"`
	Failures     int    `json:"failures"`
	JobsPruned   int64  `json:"jobsPruned"`
	LogsPruned   int    `json:"logsPruned"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// QualityPreset describes one compression preset.
type QualityPreset struct {
	Name         string `json:"name"`
	VideoBitrate string `json:"videoBitrate"`
	AudioBitrate string `json:"audioBitrate"`
	Resolution   string `json:"resolution"`
	FPS          int    `json:"fps"`
}

// OptionsResponse lists the accepted values of each request option.
type OptionsResponse struct {
	Qualities      []QualityPreset `json:"qualities"`
	Formats        []string        `json:"formats"`
	Positions      []string        `json:"positions"`
	DefaultQuality string          `json:"defaultQuality"`
	DefaultFormat  string          `json:"defaultFormat"`
	MaxMergeInputs int             `json:"maxMergeInputs"`
	MaxUploadMB    int             `json:"maxUploadMb"`
}
