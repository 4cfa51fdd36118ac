package contracts

import (
	"fmt"
	"runtime"
)

// Version is the release of the dashboard, the CLI and the report contract.
const Version = "0.3.0"

// ReportFormatVersion changes whenever the JSON shape of domain.Report does.
const ReportFormatVersion = "v1"

// APIVersion covers the HTTP routes and the websocket messages.
const APIVersion = "v1"

// Set with -ldflags "-X casepulse/pkg/contracts.BuildTime=... -X ...GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
	ReportFormat string `json:"report_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns the build information of this binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		ReportFormat: ReportFormatVersion,
		APIVersion:   APIVersion,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s, report format %s)",
		v.Version, v.GitCommit, v.BuildTime, v.GoVersion, v.Platform, v.ReportFormat)
}
