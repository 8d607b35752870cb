package iaw5am

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/avast/retry-go"
	"github.com/roffe/gokline"
	"github.com/roffe/gokline/pkg/kwp2000"
)

const (
	challengeLength    = 17
	challengeSIDOffset = 10
	challengeNRCOffset = 12
	challengeOffset    = 12
	keyResultOffset    = 14
	keyResultNRCOffset = 16
)

// RequestSecurityAccess fetches a challenge from the ECU, answers it and
// checks the verdict. The ECU needs a moment to come up with a fresh seed,
// every attempt waits Config.ChallengeDelay before reading.
func (c *Client) RequestSecurityAccess(ctx context.Context) error {
	c.setState(Authenticating)
	challenge, err := c.requestChallenge(ctx)
	if err != nil {
		return gokline.Step("security access", err)
	}
	key := CalculateKey(challenge)
	c.log.Infof("Challenge: 0x%08X", challenge)
	c.log.Infof("Response:  0x%08X", key)

	resp, err := c.Exchange(ctx, msgSecurityKey(key))
	if err != nil {
		return gokline.Step("send key", err)
	}
	if len(resp) <= keyResultOffset {
		return gokline.Step("send key", fmt.Errorf("%w: reply too short (%d bytes)", gokline.ErrAuthRejected, len(resp)))
	}
	if resp[keyResultOffset] != kwp2000.SECURITY_ACCESS_POSITIVE_RESPONSE {
		if resp[keyResultOffset] == kwp2000.NEGATIVE_RESPONSE && len(resp) > keyResultNRCOffset {
			return gokline.Step("send key", fmt.Errorf("%w: %v", gokline.ErrAuthRejected, kwp2000.TranslateErrorCode(resp[keyResultNRCOffset])))
		}
		return gokline.Step("send key", fmt.Errorf("%w: got 0x%02X", gokline.ErrAuthRejected, resp[keyResultOffset]))
	}
	c.session.Authenticated = true
	c.setState(Authenticated)
	c.log.Info("Login successful")
	return nil
}

func (c *Client) requestChallenge(ctx context.Context) (uint32, error) {
	var challenge uint32
	var fatal error
	err := retry.Do(
		func() error {
			n, err := c.Send(ctx, msgSecurityAccess)
			if err != nil {
				fatal = err
				return retry.Unrecoverable(err)
			}
			if err := sleep(ctx, c.cfg.ChallengeDelay); err != nil {
				fatal = err
				return retry.Unrecoverable(err)
			}
			resp, err := c.read(ctx)
			if err != nil {
				fatal = err
				return retry.Unrecoverable(err)
			}
			if len(resp) != challengeLength {
				return fmt.Errorf("unexpected challenge reply length %d", len(resp))
			}
			if resp[challengeSIDOffset] == kwp2000.NEGATIVE_RESPONSE {
				return fmt.Errorf("negative response: %w", kwp2000.TranslateErrorCode(resp[challengeNRCOffset]))
			}
			if _, err := kwp2000.Validate(n, resp); err != nil {
				return err
			}
			challenge = binary.BigEndian.Uint32(resp[challengeOffset : challengeOffset+4])
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.AuthAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warnf("challenge #%d: %v", n+1, err)
		}),
	)
	switch {
	case fatal != nil:
		return 0, fatal
	case err == nil:
		return challenge, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return 0, err
	default:
		return 0, fmt.Errorf("%w after %d attempts: %v", gokline.ErrAuthExhausted, c.cfg.AuthAttempts, err)
	}
}

// CalculateKey derives the security access key from a challenge.
func CalculateKey(challenge uint32) uint32 {
	hi := uint16(challenge >> 16)
	lo := uint16(challenge)
	w := bits.ReverseBytes16(hi)
	b1 := uint32(w/0xA1) & 0xFF
	b2 := uint32(lo%0xC8) & 0xFF
	return b1<<24 | b2<<16 | 0x69<<8 | 0x27
}
