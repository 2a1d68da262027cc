// Package compileinfo reports which revision of geneexpr a binary was built
// from, so that output files can be traced back to the code that made them.
package compileinfo

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
)

type CompileInfo struct {
	Tool       string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.GoVersion == "" {
		return "No build information is embedded in this binary."
	}

	commit := c.Commit
	if commit == "" {
		commit = "(unknown commit)"
	}
	if c.Modified {
		commit += "+dirty"
	}

	return fmt.Sprintf("%s (%s %s) built with %s from %s at %s", c.Tool, c.Module, c.Version, c.GoVersion, commit, c.CommitTime)
}

// Get reads the build information embedded by the Go toolchain.
func Get() CompileInfo {
	out := CompileInfo{Tool: path.Base(os.Args[0])}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = bi.GoVersion
	out.Module = bi.Main.Path
	out.Version = bi.Main.Version
	if bi.Path != "" {
		out.Tool = path.Base(bi.Path)
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
