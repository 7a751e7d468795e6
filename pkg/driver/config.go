package driver

import (
	"runtime"

	"github.com/xyproto/env/v2"
)

// Config controls a batch compilation.
type Config struct {
	OutDir   string // where listings go; empty means next to each source
	Workers  int    // files compiled concurrently
	Run      bool   // execute each listing on the simulator
	Snapshot bool   // with Run, also write a JSON machine snapshot
	Verbose  bool
	Suffix   string // listing file extension
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Suffix:  ".s",
	}
}

// ConfigFromEnv starts from DefaultConfig and applies the MIPSCC_*
// environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.OutDir = env.Str("MIPSCC_OUT_DIR", cfg.OutDir)
	cfg.Workers = env.Int("MIPSCC_WORKERS", cfg.Workers)
	cfg.Run = env.Bool("MIPSCC_RUN")
	cfg.Snapshot = env.Bool("MIPSCC_SNAPSHOT")
	cfg.Verbose = env.Bool("MIPSCC_VERBOSE")
	cfg.Suffix = env.Str("MIPSCC_SUFFIX", cfg.Suffix)
	return cfg.normalized()
}

func (c Config) normalized() Config {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Suffix == "" {
		c.Suffix = ".s"
	}
	return c
}
