package gokline

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config carries every tunable of a session. It is built once by the host
// and handed to each component constructor.
type Config struct {
	Debug          bool
	Timeout        time.Duration // idle timeout terminating a response
	ChallengeDelay time.Duration
	AuthAttempts   uint
	EraseSettle    time.Duration
	ProgramSettle  time.Duration
	ReadBaudRate   int
	WriteBaudRate  int
	WriteDate      time.Time
	Log            log.FieldLogger
	Progress       Progress
}

type Opts func(c *Config) error

func NewConfig(opts ...Opts) (*Config, error) {
	cfg := &Config{
		Timeout:        50 * time.Millisecond,
		ChallengeDelay: 1 * time.Second,
		AuthAttempts:   10,
		EraseSettle:    10 * time.Second,
		ProgramSettle:  2 * time.Second,
		ReadBaudRate:   ReadBaudRate,
		WriteBaudRate:  WriteBaudRate,
		WriteDate:      time.Now(),
		Progress:       NopProgress{},
	}
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Log == nil {
		l := log.New()
		if cfg.Debug {
			l.SetLevel(log.DebugLevel)
		}
		cfg.Log = l
	}
	return cfg, nil
}

func OptDebug(enabled bool) Opts {
	return func(c *Config) error {
		c.Debug = enabled
		return nil
	}
}

func OptTimeout(ms int) Opts {
	return func(c *Config) error {
		if ms <= 0 {
			return errors.New("timeout must be positive")
		}
		c.Timeout = time.Duration(ms) * time.Millisecond
		return nil
	}
}

func OptChallengeDelay(d time.Duration) Opts {
	return func(c *Config) error {
		c.ChallengeDelay = d
		return nil
	}
}

func OptAuthAttempts(n uint) Opts {
	return func(c *Config) error {
		if n == 0 {
			return errors.New("at least one authentication attempt is required")
		}
		c.AuthAttempts = n
		return nil
	}
}

func OptSettle(erase, program time.Duration) Opts {
	return func(c *Config) error {
		c.EraseSettle = erase
		c.ProgramSettle = program
		return nil
	}
}

func OptBaudRates(read, write int) Opts {
	return func(c *Config) error {
		if read <= 0 || write <= 0 {
			return errors.New("baud rates must be positive")
		}
		c.ReadBaudRate = read
		c.WriteBaudRate = write
		return nil
	}
}

func OptWriteDate(t time.Time) Opts {
	return func(c *Config) error {
		c.WriteDate = t
		return nil
	}
}

func OptLogger(l log.FieldLogger) Opts {
	return func(c *Config) error {
		c.Log = l
		return nil
	}
}

func OptProgress(p Progress) Opts {
	return func(c *Config) error {
		if p == nil {
			p = NopProgress{}
		}
		c.Progress = p
		return nil
	}
}
