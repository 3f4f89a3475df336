package radio

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/radiogo/pkg/pacing"
	"github.com/zachfi/radiogo/pkg/probe"
)

const (
	defaultSource         = "public/audio/songs/conversation.mp3"
	defaultPublicDir      = "public"
	defaultBitrateDivisor = 8
	defaultListenerBuffer = 1024
)

type Config struct {
	Source          string        `yaml:"source,omitempty"`          // file path or http(s) URL of the broadcast
	PublicDir       string        `yaml:"public-dir,omitempty"`      // directory of static pages and assets
	HomePage        string        `yaml:"home-page,omitempty"`       // relative to public-dir
	ControllerPage  string        `yaml:"controller-page,omitempty"` // relative to public-dir
	FallbackBitrate int           `yaml:"fallback-bitrate,omitempty"`
	BitrateDivisor  int           `yaml:"bitrate-divisor,omitempty"` // bits per second / divisor = bytes per second
	ProbeCommand    string        `yaml:"probe-command,omitempty"`
	ProbeTimeout    time.Duration `yaml:"probe-timeout,omitempty"`
	ChunkSize       int           `yaml:"chunk-size,omitempty"`
	ListenerBuffer  int           `yaml:"listener-buffer,omitempty"` // chunks queued per listener before it is dropped
	Autostart       bool          `yaml:"autostart,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Source, util.PrefixConfig(prefix, "source"), defaultSource, "Audio file or http(s) stream URL to broadcast.")
	f.StringVar(&cfg.PublicDir, util.PrefixConfig(prefix, "public-dir"), defaultPublicDir, "Directory served for pages and static assets.")
	f.StringVar(&cfg.HomePage, util.PrefixConfig(prefix, "home-page"), "home/index.html", "Page served at /home, relative to public-dir.")
	f.StringVar(&cfg.ControllerPage, util.PrefixConfig(prefix, "controller-page"), "controller/index.html", "Page served at /controller, relative to public-dir.")
	f.IntVar(&cfg.FallbackBitrate, util.PrefixConfig(prefix, "fallback-bitrate"), probe.DefaultFallback, "Bitrate in bits per second used when the source cannot be probed.")
	f.IntVar(&cfg.BitrateDivisor, util.PrefixConfig(prefix, "bitrate-divisor"), defaultBitrateDivisor, "Divisor converting the probed bitrate to the pacing rate in bytes per second.")
	f.StringVar(&cfg.ProbeCommand, util.PrefixConfig(prefix, "probe-command"), probe.DefaultCommand, "Command invoked as '<cmd> --i -B <file>' to discover the source bitrate.")
	f.DurationVar(&cfg.ProbeTimeout, util.PrefixConfig(prefix, "probe-timeout"), probe.DefaultTimeout, "Maximum time to wait for the probe command.")
	f.IntVar(&cfg.ChunkSize, util.PrefixConfig(prefix, "chunk-size"), pacing.DefaultChunkSize, "Bytes released to listeners per paced chunk.")
	f.IntVar(&cfg.ListenerBuffer, util.PrefixConfig(prefix, "listener-buffer"), defaultListenerBuffer,
		"Chunks buffered per listener. A listener that falls this far behind is disconnected.")
	f.BoolVar(&cfg.Autostart, util.PrefixConfig(prefix, "autostart"), false, "Start streaming when the service starts.")
}

// applyDefaults fills zero values left by configs that skipped flag registration.
func (cfg *Config) applyDefaults() {
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = defaultPublicDir
	}
	if cfg.BitrateDivisor <= 0 {
		cfg.BitrateDivisor = defaultBitrateDivisor
	}
	if cfg.FallbackBitrate <= 0 {
		cfg.FallbackBitrate = probe.DefaultFallback
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = pacing.DefaultChunkSize
	}
	if cfg.ListenerBuffer <= 0 {
		cfg.ListenerBuffer = defaultListenerBuffer
	}
}
