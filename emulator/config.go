/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package emulator

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/kernel"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/console"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/debug"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/keyboard"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/mmu"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/ram"
	"github.com/andreas-jonsson/virtualsos/emulator/processor/cpu"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	EnvConfig   = "VSOS_CONFIG"
	EnvLogLevel = "VSOS_LOG_LEVEL"
)

const DefaultDiskWords = 1024

// Duration is a time.Duration that reads "500us" style strings from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		dur, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(dur)
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	return nil
}

type Latency struct {
	Min Duration `json:"min"`
	Max Duration `json:"max"`
}

func (l Latency) latency() peripheral.Latency {
	return peripheral.Latency{Min: time.Duration(l.Min), Max: time.Duration(l.Max)}
}

func latencyFrom(l peripheral.Latency) Latency {
	return Latency{Min: Duration(l.Min), Max: Duration(l.Max)}
}

type Config struct {
	MemorySize      int    `json:"memory_size"`
	PageSize        int    `json:"page_size"`
	ClockFrequency  int    `json:"clock_frequency"`
	SwitchCost      int    `json:"switch_cost"`
	Seed            int64  `json:"seed"`
	NonBlockingOpen bool   `json:"nonblocking_open"`
	CoreDumpDir     string `json:"core_dump_dir"`

	KeyboardLatency Latency `json:"keyboard_latency"`
	ConsoleLatency  Latency `json:"console_latency"`

	DiskImage    string `json:"disk_image"`
	DiskWords    int    `json:"disk_words"`
	DiskSharable bool   `json:"disk_sharable"`

	History  int      `json:"history"`
	LogLevel string   `json:"log_level"`
	Programs []string `json:"programs"`
}

func DefaultConfig() Config {
	return Config{
		MemorySize:      ram.DefaultSize,
		PageSize:        mmu.DefaultPageSize,
		ClockFrequency:  cpu.DefaultClockFrequency,
		SwitchCost:      kernel.DefaultSwitchCost,
		KeyboardLatency: latencyFrom(keyboard.DefaultLatency),
		ConsoleLatency:  latencyFrom(console.DefaultLatency),
		DiskWords:       DefaultDiskWords,
		History:         debug.DefaultHistorySize,
		LogLevel:        log.InfoLevel.String(),
	}
}

// LoadConfig returns the default configuration overlaid with the JSON file
// at path. An empty path falls back to $VSOS_CONFIG and then to the
// defaults. $VSOS_LOG_LEVEL overrides the level from the file.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	if lvl, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = lvl
	}
	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if cfg.PageSize <= 0 || cfg.PageSize&(cfg.PageSize-1) != 0 {
		return fmt.Errorf("%w: %d", mmu.ErrPageSize, cfg.PageSize)
	}
	if cfg.MemorySize <= 0 || cfg.MemorySize%cfg.PageSize != 0 {
		return fmt.Errorf("%w: %d", mmu.ErrMemorySize, cfg.MemorySize)
	}
	if cfg.ClockFrequency < 0 {
		return fmt.Errorf("invalid clock frequency: %d", cfg.ClockFrequency)
	}
	if cfg.SwitchCost < 0 {
		return fmt.Errorf("invalid switch cost: %d", cfg.SwitchCost)
	}
	if cfg.DiskImage != "" && cfg.DiskWords <= 0 {
		return fmt.Errorf("invalid disk size: %d", cfg.DiskWords)
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses the configured log level. An empty level means info.
func (cfg Config) Level() (log.Level, error) {
	if cfg.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(cfg.LogLevel)
}
