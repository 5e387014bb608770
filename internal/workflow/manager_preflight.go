package workflow

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"reelsmith/internal/progress"
	"reelsmith/internal/services"
)

const bytesPerGiB = 1 << 30

// checkFreeSpace refuses to render when the output volume is below the
// configured floor. A zero floor disables the check.
func (m *Manager) checkFreeSpace() error {
	if m.cfg.Render.MinFreeGiB <= 0 {
		return nil
	}
	required := uint64(m.cfg.Render.MinFreeGiB * bytesPerGiB)
	free, err := m.freeSpace(m.cfg.Paths.OutputDir)
	if err != nil {
		return services.Wrap(services.ErrResource, string(progress.StageRendering), "free space", "could not measure free space on "+m.cfg.Paths.OutputDir, err)
	}
	if free < required {
		msg := fmt.Sprintf("insufficient disk space: %s free, %s required", humanize.IBytes(free), humanize.IBytes(required))
		return services.Wrap(services.ErrResource, string(progress.StageRendering), "free space", msg, nil)
	}
	return nil
}
