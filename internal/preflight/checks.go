package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/providers"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFile verifies that a regular file exists and is readable.
func CheckFile(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, humanize.IBytes(uint64(info.Size())))}
}

// CheckFreeSpace compares the available space under path with minGiB. A
// zero minimum only reports the free space.
func CheckFreeSpace(name, path string, minGiB float64) Result {
	free, err := fileutil.FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	required := uint64(minGiB * (1 << 30))
	if free < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, %s required", humanize.IBytes(free), humanize.IBytes(required))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", humanize.IBytes(free))}
}

// CheckSystemDeps evaluates the binaries required by the configured
// providers. Both the daemon and the CLI use this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

// FromDependency converts a dependency status into a check result. Missing
// optional binaries pass with a note.
func FromDependency(status deps.Status) Result {
	name := status.Name
	if status.Available {
		return Result{Name: name, Passed: true, Detail: status.Command}
	}
	if status.Optional {
		return Result{Name: name, Passed: true, Detail: "optional: " + status.Detail}
	}
	return Result{Name: name, Detail: status.Detail}
}

// CheckProviders runs every configured backend's health check.
func CheckProviders(ctx context.Context, collab providers.Collaborators) []Result {
	health := collab.HealthCheck(ctx)
	roles := []string{"speech", "normalizer", "transcriber", "footage", "renderer"}
	results := make([]Result, 0, len(roles))
	for _, role := range roles {
		h, ok := health[role]
		if !ok {
			results = append(results, Result{Name: role, Detail: "not configured"})
			continue
		}
		detail := h.Name
		if h.Detail != "" {
			detail = fmt.Sprintf("%s (%s)", h.Name, h.Detail)
		}
		results = append(results, Result{Name: role, Passed: h.Ready, Detail: detail})
	}
	return results
}
