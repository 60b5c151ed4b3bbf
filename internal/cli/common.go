package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"goa.design/clue/log"
)

// Version information for all CLI tools
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-17"
	CommitSHA = "unknown" // Will be set during build
)

// VersionInfo contains version and build information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion writes version information as text or JSON.
func PrintVersion(w io.Writer, toolName string, jsonOutput bool) error {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "%s v%s\n", toolName, info.Version)
	fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
	if info.CommitSHA != "unknown" && info.CommitSHA != "" {
		fmt.Fprintf(w, "Commit: %s\n", info.CommitSHA)
	}
	fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s/%s\n", info.Platform, info.Arch)

	return nil
}

// CheckVersion verifies that this build satisfies constraint. An empty
// constraint always passes.
func CheckVersion(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Errorf("invalid build version %q: %w", Version, err)
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("version %s does not satisfy %q: %w", Version, constraint, errs[0])
		}
		return fmt.Errorf("version %s does not satisfy %q", Version, constraint)
	}
	return nil
}

// ExitWithError prints an error message and exits with code 1
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// Logger is a printf-style front to the structured logger carried by ctx.
type Logger struct {
	ctx       context.Context
	Verbose   bool
	DebugMode bool
}

// NewLogger creates a logger writing to w in the given format
// ("text", "json" or "terminal").
func NewLogger(w io.Writer, format string, verbose, debug bool) *Logger {
	opts := []log.LogOption{log.WithFormat(formatFunc(format)), log.WithOutput(w)}
	if debug {
		opts = append(opts, log.WithDebug())
	}

	return &Logger{
		ctx:       log.Context(context.Background(), opts...),
		Verbose:   verbose,
		DebugMode: debug,
	}
}

func formatFunc(name string) log.FormatFunc {
	switch name {
	case "json":
		return log.FormatJSON
	case "terminal":
		return log.FormatTerminal
	default:
		return log.FormatText
	}
}

// Context returns the context carrying the logger, for packages that log
// through clue directly.
func (l *Logger) Context() context.Context { return l.ctx }

// Info logs an info message when verbose output is on. It writes through
// Print, which bypasses clue's buffering.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		log.Print(l.ctx, log.KV{K: "msg", V: fmt.Sprintf(format, args...)})
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.DebugMode {
		log.Print(l.ctx, log.KV{K: "level", V: "debug"}, log.KV{K: "msg", V: fmt.Sprintf(format, args...)})
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	log.Warn(l.ctx, log.KV{K: "msg", V: fmt.Sprintf(format, args...)})
}

// Error logs an error message
func (l *Logger) Error(err error, format string, args ...interface{}) {
	log.Error(l.ctx, err, log.KV{K: "msg", V: fmt.Sprintf(format, args...)})
}
