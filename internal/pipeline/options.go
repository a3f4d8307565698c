package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// QualityPreset is a compression target.
type QualityPreset struct {
	Name         string `json:"name"`
	VideoBitrate string `json:"videoBitrate"`
	AudioBitrate string `json:"audioBitrate"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
}

// Resolution renders the preset size as "WxH".
func (q QualityPreset) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// Default option values.
const (
	DefaultQuality  = "medium"
	DefaultFormat   = "mp4"
	DefaultPosition = "bottomright"
)

var qualityPresets = map[string]QualityPreset{
	"very_high": {Name: "very_high", VideoBitrate: "3000k", AudioBitrate: "192k", Width: 1920, Height: 1080, FPS: 30},
	"high":      {Name: "high", VideoBitrate: "2000k", AudioBitrate: "128k", Width: 1280, Height: 720, FPS: 30},
	"medium":    {Name: "medium", VideoBitrate: "1000k", AudioBitrate: "96k", Width: 854, Height: 480, FPS: 30},
	"low":       {Name: "low", VideoBitrate: "500k", AudioBitrate: "64k", Width: 640, Height: 360, FPS: 24},
	"very_low":  {Name: "very_low", VideoBitrate: "250k", AudioBitrate: "32k", Width: 426, Height: 240, FPS: 24},
}

var qualityOrder = []string{"very_high", "high", "medium", "low", "very_low"}

var watermarkPositions = map[string]string{
	"topleft":     "10:10",
	"topright":    "main_w-overlay_w-10:10",
	"bottomleft":  "10:main_h-overlay_h-10",
	"bottomright": "main_w-overlay_w-10:main_h-overlay_h-10",
	"center":      "(main_w-overlay_w)/2:(main_h-overlay_h)/2",
}

// OutputFormat maps a user-facing container name to ffmpeg's muxer.
type OutputFormat struct {
	Name  string `json:"name"`
	Muxer string `json:"muxer"`
}

// Extension returns the file extension for the format, with the dot.
func (f OutputFormat) Extension() string {
	return "." + f.Name
}

var outputFormats = map[string]OutputFormat{
	"mp4":  {Name: "mp4", Muxer: "mp4"},
	"avi":  {Name: "avi", Muxer: "avi"},
	"mkv":  {Name: "mkv", Muxer: "matroska"},
	"mov":  {Name: "mov", Muxer: "mov"},
	"webm": {Name: "webm", Muxer: "webm"},
}

func normalizeOption(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// LookupQuality resolves a preset name; blank selects the default.
func LookupQuality(name string) (QualityPreset, error) {
	key := normalizeOption(name)
	if key == "" {
		key = DefaultQuality
	}
	preset, ok := qualityPresets[key]
	if !ok {
		return QualityPreset{}, fmt.Errorf("unknown quality %q (want one of %s)", name, strings.Join(qualityOrder, ", "))
	}
	return preset, nil
}

// QualityPresets returns every preset from highest to lowest quality.
func QualityPresets() []QualityPreset {
	out := make([]QualityPreset, 0, len(qualityOrder))
	for _, name := range qualityOrder {
		out = append(out, qualityPresets[name])
	}
	return out
}

// LookupPosition resolves a watermark position to its overlay expression.
func LookupPosition(name string) (string, error) {
	key := normalizeOption(name)
	if key == "" {
		key = DefaultPosition
	}
	expr, ok := watermarkPositions[key]
	if !ok {
		return "", fmt.Errorf("unknown position %q (want one of %s)", name, strings.Join(PositionNames(), ", "))
	}
	return expr, nil
}

// PositionNames lists the accepted watermark positions.
func PositionNames() []string {
	names := make([]string, 0, len(watermarkPositions))
	for name := range watermarkPositions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupFormat resolves a target container; blank selects mp4.
func LookupFormat(name string) (OutputFormat, error) {
	key := strings.TrimPrefix(normalizeOption(name), ".")
	if key == "" {
		key = DefaultFormat
	}
	format, ok := outputFormats[key]
	if !ok {
		return OutputFormat{}, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(FormatNames(), ", "))
	}
	return format, nil
}

// FormatNames lists the accepted conversion targets.
func FormatNames() []string {
	names := make([]string, 0, len(outputFormats))
	for name := range outputFormats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
