package system

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits поднимает лимит открытых файлов: запись PNG-последовательности
// идёт из нескольких воркеров одновременно.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		slog.Warn("could not read open file limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		slog.Warn("could not raise open file limit", "error", err)
		return
	}
	slog.Debug("open file limit raised", "limit", rLimit.Cur)
}

// MoviesDir returns the user's video directory (~/Movies on macOS, ~/Videos
// elsewhere) or the working directory when there is no home.
func MoviesDir() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Movies")
	}
	return filepath.Join(home, "Videos")
}

// ExpandPath resolves a leading "~" in user supplied paths.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// DefaultWorkers returns the number of logical CPUs, falling back to the Go runtime's view.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// HostReport is a short description of the machine the studio runs on.
type HostReport struct {
	CPUModel     string
	LogicalCPUs  int
	TotalMemory  uint64
	MemoryUsedPc float64
}

func (r HostReport) String() string {
	return fmt.Sprintf("CPU: %s (%d threads) | RAM: %.1f GiB, %.0f%% used",
		r.CPUModel, r.LogicalCPUs, float64(r.TotalMemory)/(1<<30), r.MemoryUsedPc)
}

func Host() (HostReport, error) {
	var r HostReport
	infos, err := cpu.Info()
	if err != nil {
		return r, fmt.Errorf("cpu info: %w", err)
	}
	if len(infos) > 0 {
		r.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	r.LogicalCPUs = DefaultWorkers()

	vm, err := mem.VirtualMemory()
	if err != nil {
		return r, fmt.Errorf("memory info: %w", err)
	}
	r.TotalMemory = vm.Total
	r.MemoryUsedPc = vm.UsedPercent
	return r, nil
}

func GetBestH264Encoder() string {
	// Приоритеты: VideoToolbox, NVENC, затем libx264.
	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality picks a quality value that suits the encoder.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}
