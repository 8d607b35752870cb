package gokline

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 50*time.Millisecond || cfg.ChallengeDelay != time.Second || cfg.AuthAttempts != 10 {
		t.Errorf("timing defaults = %s %s %d", cfg.Timeout, cfg.ChallengeDelay, cfg.AuthAttempts)
	}
	if cfg.ReadBaudRate != 64200 || cfg.WriteBaudRate != 38400 {
		t.Errorf("baud defaults = %d/%d", cfg.ReadBaudRate, cfg.WriteBaudRate)
	}
	if cfg.Log == nil || cfg.Progress == nil || cfg.WriteDate.IsZero() {
		t.Error("logger, progress and write date must be set")
	}
}

func TestNewConfigOptions(t *testing.T) {
	date := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	cfg, err := NewConfig(
		OptDebug(true),
		OptTimeout(120),
		OptChallengeDelay(0),
		OptAuthAttempts(3),
		OptSettle(time.Second, 0),
		OptBaudRates(9600, 19200),
		OptWriteDate(date),
		OptProgress(nil),
	)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 120*time.Millisecond || cfg.ChallengeDelay != 0 || cfg.AuthAttempts != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.EraseSettle != time.Second || cfg.ProgramSettle != 0 || !cfg.WriteDate.Equal(date) {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ReadBaudRate != 9600 || cfg.WriteBaudRate != 19200 {
		t.Errorf("baud = %d/%d", cfg.ReadBaudRate, cfg.WriteBaudRate)
	}
	if _, ok := cfg.Progress.(NopProgress); !ok {
		t.Errorf("nil progress should fall back to NopProgress, got %T", cfg.Progress)
	}
	if l, ok := cfg.Log.(*log.Logger); !ok || l.GetLevel() != log.DebugLevel {
		t.Error("debug config should log at debug level")
	}
}

func TestNewConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		opt  Opts
	}{
		{"zero timeout", OptTimeout(0)},
		{"negative timeout", OptTimeout(-5)},
		{"no attempts", OptAuthAttempts(0)},
		{"zero baud", OptBaudRates(0, 38400)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewConfig(tt.opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}
