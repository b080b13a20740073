package engine

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/arung-agamani/denpa-radio/internal/model"
)

// probeTimeout bounds how long a bitrate probe may run.
const probeTimeout = 5 * time.Second

// probeBitrate runs ffprobe once to determine a track's real bitrate,
// caching the result on the Track so it is never re-probed on retry (see
// DESIGN.md Open Question #2). Failures default to model.DefaultBitrate.
func probeBitrate(ffprobePath, path string) int {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=bit_rate",
		"-of", "default=nw=1:nk=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return model.DefaultBitrate
	}

	val := strings.TrimSpace(string(out))
	bps, err := strconv.Atoi(val)
	if err != nil || bps <= 0 {
		return model.DefaultBitrate
	}
	return bps
}

// ensureBitrate freezes track.Bitrate via probeBitrate the first time it is
// played, leaving an already-known bitrate untouched.
func ensureBitrate(ffprobePath string, track *model.Track) {
	if track.BitrateProbed {
		return
	}
	track.Bitrate = probeBitrate(ffprobePath, track.URL)
	track.BitrateProbed = true
}
