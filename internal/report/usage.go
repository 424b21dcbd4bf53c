package report

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/timfallmk/filesize"
	"github.com/timfallmk/filesize/internal/logging"
	"github.com/timfallmk/filesize/internal/volume"
)

// Usage is the logical and allocated size of a single file.
type Usage struct {
	Path    string       `json:"path"`
	Logical uint64       `json:"logical"`
	OnDisk  uint64       `json:"on_disk"`
	Mode    fs.FileMode  `json:"-"`
	Volume  *volume.Info `json:"volume,omitempty"`
}

// Sparse reports whether less space is allocated than the logical length,
// which happens for sparse and filesystem-compressed files.
func (u Usage) Sparse() bool {
	return u.OnDisk < u.Logical
}

// Ratio is OnDisk divided by Logical, or 0 for an empty file.
func (u Usage) Ratio() float64 {
	if u.Logical == 0 {
		return 0
	}
	return float64(u.OnDisk) / float64(u.Logical)
}

// Rounded is the logical size rounded up to the volume's block size, the
// allocation a dense copy of the file would need. Without volume
// information it is the logical size.
func (u Usage) Rounded() uint64 {
	if u.Volume == nil {
		return u.Logical
	}
	return volume.RoundUp(u.Logical, u.Volume.BlockSize)
}

// Measurer measures files one at a time. It holds no per-file state and is
// safe for concurrent use.
type Measurer struct {
	logger     *logging.Logger
	metrics    *logging.MetricsLogger
	withVolume bool
}

// NewMeasurer returns a Measurer logging through logger. When withVolume is
// set each Usage also carries the volume the file lives on.
func NewMeasurer(logger *logging.Logger, withVolume bool) *Measurer {
	return &Measurer{
		logger:     logger.WithComponent("report"),
		metrics:    logging.NewMetricsLogger(logger),
		withVolume: withVolume,
	}
}

// Measure stats path once without following symlinks and derives both sizes
// from that metadata.
func (m *Measurer) Measure(path string) (Usage, error) {
	tracker := m.metrics.StartTracking("size_on_disk", map[string]string{"path": path})

	info, err := os.Lstat(path)
	if err != nil {
		tracker.FinishWithError(err)
		return Usage{}, err
	}

	onDisk, err := filesize.SizeOnDiskFast(path, info)
	if err != nil {
		tracker.FinishWithError(err)
		return Usage{}, fmt.Errorf("size on disk of %s: %w", path, err)
	}
	tracker.Finish()

	u := Usage{
		Path:    path,
		Logical: uint64(info.Size()), //nolint:gosec
		OnDisk:  onDisk,
		Mode:    info.Mode(),
	}

	if m.withVolume {
		vol, err := volume.Inspect(path)
		if err != nil {
			m.logger.Warn("volume lookup failed", "path", path, "error", err)
		} else {
			u.Volume = &vol
		}
	}

	return u, nil
}

// Measure measures path with the global logger and no volume lookup.
func Measure(path string) (Usage, error) {
	return NewMeasurer(logging.GetGlobalLogger(), false).Measure(path)
}
