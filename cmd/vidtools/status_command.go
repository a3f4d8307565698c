package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidtools/internal/config"
	"vidtools/internal/deps"
	"vidtools/internal/preflight"
	"vidtools/internal/staging"
)

type statusReport struct {
	ConfigPath   string             `json:"configPath"`
	Bind         string             `json:"bind"`
	AuthEnabled  bool               `json:"authEnabled"`
	Provider     string             `json:"transcriptionProvider"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []dependencyReport `json:"dependencies"`
	Storage      []staging.DirUsage `json:"storage"`
}

type dependencyReport struct {
	deps.Status
	Version string `json:"version,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var checkAPI bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, binaries and transcription setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := buildStatusReport(cmd.Context(), cfg, ctx.configPath, checkAPI)
			if asJSON {
				return writeJSON(cmd, report)
			}
			printStatusReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&checkAPI, "check-api", false, "Contact the transcription provider to verify the API key")
	return cmd
}

func buildStatusReport(ctx context.Context, cfg *config.Config, configPath string, checkAPI bool) statusReport {
	report := statusReport{
		ConfigPath:  configPath,
		Bind:        cfg.Server.APIBind,
		AuthEnabled: strings.TrimSpace(cfg.Server.APIToken) != "",
		Provider:    cfg.Transcription.Provider,
		Checks:      preflight.RunAll(ctx, cfg),
	}
	if checkAPI {
		report.Checks = append(report.Checks, preflight.CheckTranscriptionAPI(ctx, cfg))
	}

	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		dep := dependencyReport{Status: status}
		if status.Available {
			versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if line, err := deps.VersionLine(versionCtx, status.Command); err == nil {
				dep.Version = line
			}
			cancel()
		}
		report.Dependencies = append(report.Dependencies, dep)
	}

	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.TempDir, cfg.Paths.OutputDir} {
		usage, err := staging.Usage(dir)
		if err != nil {
			usage.Path = dir
		}
		report.Storage = append(report.Storage, usage)
	}
	return report
}

func printStatusReport(cmd *cobra.Command, report statusReport) {
	rw := newReportWriter(cmd.OutOrStdout())

	rw.section("Configuration")
	configPath := report.ConfigPath
	if configPath == "" {
		configPath = "defaults"
	}
	rw.line("Config", kindInfo, configPath)
	rw.line("Bind", kindInfo, report.Bind)
	rw.line("Auth", kindInfo, yesNo(report.AuthEnabled))
	rw.line("Transcription", kindInfo, report.Provider)

	rw.blank()
	rw.section("Checks")
	for _, check := range report.Checks {
		rw.line(check.Name, checkKind(check), check.Detail)
	}

	rw.blank()
	rw.section("Dependencies")
	rw.lines(dependencyLines(report.Dependencies, rw.color))

	rw.blank()
	rows := make([][]string, 0, len(report.Storage))
	for _, usage := range report.Storage {
		oldest := "-"
		if !usage.Oldest.IsZero() {
			oldest = humanAge(time.Since(usage.Oldest))
		}
		rows = append(rows, []string{usage.Path, strconv.Itoa(usage.Files), humanBytes(usage.Bytes), oldest})
	}
	fmt.Fprintln(rw.out, renderTable([]column{
		{title: "Directory"},
		{title: "Files", right: true},
		{title: "Size", right: true},
		{title: "Oldest", right: true},
	}, rows))
}

// dependencyLines lists each binary with its version or failure detail and
// ends with a summary of the required ones that are missing.
func dependencyLines(statuses []dependencyReport, color bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		kind := dependencyKind(dep.Status)
		detail := strings.TrimSpace(dep.Detail)
		switch {
		case dep.Available && dep.Version != "":
			detail = dep.Version
		case dep.Available:
			detail = "Ready (command: " + dep.Command + ")"
		case detail == "":
			detail = "not available"
		}
		lines = append(lines, formatLine(dep.Name, kind, detail, color))
		if kind == kindFail {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, formatLine("Missing", kindWarn, strings.Join(missing, ", "), color))
	}
	return lines
}

func humanBytes(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
