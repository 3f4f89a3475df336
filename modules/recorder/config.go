package recorder

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"
)

// Write buffer sizing guidance (write-buffer-size):
// - SSD wear: fewer, larger writes reduce I/O overhead; 256KiB–1MiB is a good range.
// - NFS: larger buffers amortize round-trip cost; 512KiB–1MiB often performs better than 256KiB.
// - Upper bound: config is clamped to 4MiB to limit memory and avoid huge single writes.
const (
	defaultWriteBufferSize = 256 * 1024 // 256 KiB
	defaultIdleRotate      = 5 * time.Second
)

type Config struct {
	Dir             string        `yaml:"dir,omitempty"`               // empty disables recording
	WriteBufferSize int           `yaml:"write-buffer-size,omitempty"` // bytes to buffer before writing (reduces write frequency)
	IdleRotate      time.Duration `yaml:"idle-rotate,omitempty"`       // silence after which the current capture is committed
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Dir, util.PrefixConfig(prefix, "dir"), "", "Directory to archive the broadcast into. Recording is disabled when empty.")
	f.IntVar(&cfg.WriteBufferSize, util.PrefixConfig(prefix, "write-buffer-size"), defaultWriteBufferSize,
		"Bytes to buffer in memory before writing to disk (default 256KiB). Larger values reduce write frequency (helps SSD longevity and NFS). Reasonable range: 256KiB-1MiB.")
	f.DurationVar(&cfg.IdleRotate, util.PrefixConfig(prefix, "idle-rotate"), defaultIdleRotate,
		"Commit the current capture after the broadcast has been silent this long.")
}
