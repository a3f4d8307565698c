package api

import (
	"time"

	"vidtools/internal/deps"
	"vidtools/internal/jobstore"
	"vidtools/internal/pipeline"
	"vidtools/internal/preflight"
	"vidtools/internal/services"
)

// FromResult converts a finished pipeline run into its response payload.
func FromResult(res pipeline.Result) OperationResponse {
	resp := OperationResponse{
		Success:    true,
		JobID:      res.JobID,
		OutputFile: res.OutputFile,
		Message:    res.Message,
		FileSize:   res.FileSize,
		Format:     res.Format,
		Subtitles:  res.Subtitles,
		Language:   res.Language,
	}
	if res.Stats != nil {
		resp.Stats = &CompressionStats{
			OriginalSize:     res.Stats.OriginalSize,
			CompressedSize:   res.Stats.CompressedSize,
			CompressionRatio: res.Stats.CompressionRatio,
		}
	}
	return resp
}

// FromError classifies err and returns the payload plus HTTP status.
func FromError(err error, jobID string) (ErrorResponse, int) {
	detail := services.Details(err)
	resp := ErrorResponse{
		Success: false,
		Error:   detail.Message,
		Kind:    detail.Kind,
		JobID:   jobID,
	}
	if detail.Status >= 500 {
		resp.Stage = detail.Stage
	}
	return resp, detail.Status
}

// FromJob converts a job-status row.
func FromJob(job jobstore.Job) Job {
	out := Job{
		ID:         job.ID,
		Operation:  job.Operation,
		State:      string(job.State),
		Stage:      job.Stage,
		Progress:   job.Progress,
		Message:    job.Message,
		OutputFile: job.OutputFile,
		Error:      job.Error,
		CreatedAt:  formatTime(job.CreatedAt),
		UpdatedAt:  formatTime(job.UpdatedAt),
	}
	if job.FinishedAt != nil {
		out.FinishedAt = formatTime(*job.FinishedAt)
	}
	return out
}

// FromJobs converts job rows preserving order.
func FromJobs(jobs []jobstore.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromDependencies converts binary checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromPresets converts the compression presets.
func FromPresets(presets []pipeline.QualityPreset) []QualityPreset {
	out := make([]QualityPreset, 0, len(presets))
	for _, p := range presets {
		out = append(out, QualityPreset{
			Name:         p.Name,
			VideoBitrate: p.VideoBitrate,
			AudioBitrate: p.AudioBitrate,
			Resolution:   p.Resolution(),
			FPS:          p.FPS,
		})
	}
	return out
}

// FormatTime renders t in the API timestamp format; zero renders empty.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
