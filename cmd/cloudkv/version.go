package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// Set at build time, e.g. -ldflags "-X main.version=0.2.0 -X main.commit=abc123".
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = "unknown"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
	MaxPayload int    `json:"maxPayloadBytes"`
}

// currentBuild fills in the commit from the embedded VCS stamp when it was
// not set through ldflags.
func currentBuild() buildInfo {
	info := buildInfo{
		Version:    version,
		Commit:     commit,
		BuildDate:  buildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		MaxPayload: message.MaxPayloadSize,
	}
	if info.Commit == "" {
		info.Commit = "unknown"
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					info.Commit = s.Value
				}
			}
		}
	}
	return info
}

// versionCmd handles the version command.
func versionCmd(args []string) int {
	return runVersion(os.Stdout, os.Stderr, args)
}

func runVersion(stdout, stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)

	short := fs.Bool("short", false, "Show only version number")
	asJSON := fs.Bool("json", false, "Print build information as JSON")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printVersionUsage(stdout)
		return 0
	}

	info := currentBuild()
	switch {
	case *short:
		fmt.Fprintln(stdout, info.Version)
	case *asJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stdout, "cloudkv %s (%s, built %s)\n", info.Version, info.Commit, info.BuildDate)
		fmt.Fprintf(stdout, "%s on %s, max frame payload %d bytes\n", info.GoVersion, info.Platform, info.MaxPayload)
	}
	return 0
}
