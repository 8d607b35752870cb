// Package iaw5am talks to Marelli IAW 5AM engine control units over a KKL
// K-line cable: session setup, security access, flash dump and flash write.
package iaw5am

import (
	"fmt"

	"github.com/roffe/gokline"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	Disconnected State = iota
	LineInitialized
	DiagnosticOpen
	ExtendedDiagOpen
	BaudRaised
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case LineInitialized:
		return "line initialized"
	case DiagnosticOpen:
		return "diagnostic session open"
	case ExtendedDiagOpen:
		return "extended diagnostic session open"
	case BaudRaised:
		return "baud rate raised"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("unknown state %d", int(s))
	}
}

// Session is the link state as seen from the tester side.
type Session struct {
	State           State
	BaudRate        int
	Authenticated   bool
	Mode            byte
	HardwareVersion string
}

type Client struct {
	t       gokline.Transport
	cfg     *gokline.Config
	log     log.FieldLogger
	session Session
}

func New(t gokline.Transport, cfg *gokline.Config) (*Client, error) {
	if t == nil {
		return nil, gokline.ErrNilTransport
	}
	if cfg == nil {
		var err error
		if cfg, err = gokline.NewConfig(); err != nil {
			return nil, err
		}
	}
	return &Client{
		t:   t,
		cfg: cfg,
		log: cfg.Log,
		session: Session{
			State:    Disconnected,
			BaudRate: gokline.InitBaudRate,
		},
	}, nil
}

// Session returns a copy of the current session state.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) setState(s State) {
	c.log.Debugf("session: %s -> %s", c.session.State, s)
	c.session.State = s
}
