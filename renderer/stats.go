package renderer

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type WorkerStat struct {
	// The worker id.
	Id int

	// Number of tiles and pixels rendered since the last restart.
	Tiles  uint64
	Pixels uint64

	// Time spent rendering tiles since the last restart.
	RenderTime time.Duration
}

type FrameStats struct {
	// Current render state.
	State State

	// Number of fully completed passes (samples per pixel).
	Samples uint32

	// Duration of the last completed pass and total time since restart.
	LastPassTime time.Duration
	RenderTime   time.Duration

	// Individual worker stats.
	Workers []WorkerStat

	// Luminance statistics for the published frame.
	MeanLuminance   float64
	StdDevLuminance float64
}

// Render frame stats as a table.
func (fs FrameStats) Table() string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Worker", "Tiles", "Pixels", "Render time", "% of total"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var total time.Duration
	for _, ws := range fs.Workers {
		total += ws.RenderTime
	}
	for _, ws := range fs.Workers {
		var pct float64
		if total > 0 {
			pct = 100 * float64(ws.RenderTime) / float64(total)
		}
		table.Append([]string{
			fmt.Sprintf("%d", ws.Id),
			fmt.Sprintf("%d", ws.Tiles),
			fmt.Sprintf("%d", ws.Pixels),
			ws.RenderTime.String(),
			fmt.Sprintf("%2.1f %%", pct),
		})
	}
	table.SetFooter([]string{
		fs.State.String(),
		fmt.Sprintf("%d spp", fs.Samples),
		fmt.Sprintf("lum %.3f±%.3f", fs.MeanLuminance, fs.StdDevLuminance),
		fs.RenderTime.String(),
		"",
	})
	table.Render()

	return buf.String()
}
