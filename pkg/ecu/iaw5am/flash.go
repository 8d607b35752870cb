package iaw5am

import (
	"context"
	"fmt"
	"time"

	"github.com/roffe/gokline"
	"github.com/roffe/gokline/pkg/firmware"
	"github.com/roffe/gokline/pkg/kwp2000"
)

// MaxChunk is the largest payload a single transfer data request carries.
const MaxChunk = kwp2000.MaxLength - 1

// FlashECU erases the ECU and programs img. There is no resume, any failure
// aborts the write and can leave the ECU erased but not programmed.
func (c *Client) FlashECU(ctx context.Context, img *firmware.Image) error {
	if img == nil || len(img.Encoded) != firmware.EncodedSize {
		return fmt.Errorf("%w: encoded image must be %d bytes", gokline.ErrInvalidImageSize, firmware.EncodedSize)
	}
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	if err := c.OpenExtendedSession(ctx, modeErase); err != nil {
		return err
	}
	if err := c.SetBaudRate(c.cfg.WriteBaudRate); err != nil {
		return err
	}
	if err := c.exchange(ctx, "set timing parameters", msgTimingParameters); err != nil {
		return err
	}
	if err := c.RequestSecurityAccess(ctx); err != nil {
		return err
	}
	if err := c.Erase(ctx); err != nil {
		return err
	}
	return c.Program(ctx, img)
}

// Erase tags the session with the writer id and date and starts the flash
// erase. The ECU rejects the download request later without the tags.
func (c *Client) Erase(ctx context.Context) error {
	if err := c.exchange(ctx, "set writer id", msgWriterID()); err != nil {
		return err
	}
	if err := c.exchange(ctx, "set write date", msgWriteDate(c.cfg.WriteDate)); err != nil {
		return err
	}
	if err := c.exchange(ctx, "erase routine", msgEraseRoutine); err != nil {
		return err
	}
	c.log.Info("erasing flash")
	if _, err := c.Send(ctx, msgEraseStart); err != nil {
		return gokline.Step("erase start", err)
	}
	// erase status traffic is not framed for us, wait it out
	if err := c.Drain(ctx, c.cfg.EraseSettle); err != nil {
		return gokline.Step("erase settle", err)
	}
	return nil
}

// Program uploads the encoded image and runs the programming routine.
func (c *Client) Program(ctx context.Context, img *firmware.Image) error {
	if err := c.exchange(ctx, "request download", msgRequestDownload); err != nil {
		return err
	}

	start := time.Now()
	total := len(img.Encoded)
	c.cfg.Progress.Start(total, "flashing ECU")
	for pos := 0; pos < total; {
		n := total - pos
		if n > MaxChunk {
			n = MaxChunk
		}
		msg, err := msgTransferData(img.Encoded[pos : pos+n])
		if err != nil {
			c.cfg.Progress.Done()
			return gokline.Step("transfer data", err)
		}
		if err := c.exchange(ctx, fmt.Sprintf("transfer data at 0x%05X", pos), msg); err != nil {
			c.cfg.Progress.Done()
			return err
		}
		pos += n
		c.cfg.Progress.Add(n)
	}
	c.cfg.Progress.Done()
	c.log.Infof("upload done, took: %s", time.Since(start).Round(time.Millisecond))

	if err := c.exchange(ctx, "transfer exit", msgTransferExit); err != nil {
		return err
	}
	c.log.Infof("image checksum: 0x%04X", img.Checksum)
	if err := c.exchange(ctx, "programming routine", msgProgrammingRoutine(img.Checksum)); err != nil {
		return err
	}
	if err := c.exchange(ctx, "program start", msgProgramStart); err != nil {
		return err
	}
	if err := sleep(ctx, c.cfg.ProgramSettle); err != nil {
		return gokline.Step("program settle", err)
	}
	c.log.Info("flash successful")
	return nil
}

// exchange is Exchange plus a check for a negative response from the ECU.
func (c *Client) exchange(ctx context.Context, step string, req []byte) error {
	resp, err := c.Exchange(ctx, req)
	if err != nil {
		return gokline.Step(step, err)
	}
	if err := negativeResponse(resp[len(req)+1:]); err != nil {
		return gokline.Step(step, err)
	}
	return nil
}

// negativeResponse inspects an ECU reply without echo and reports a 0x7F
// response as its translated error code.
func negativeResponse(reply []byte) error {
	if len(reply) == 0 {
		return nil
	}
	sid := 3
	if reply[0]&kwp2000.MaxShortLength == 0 {
		sid = 4
	}
	if len(reply) <= sid+2 || reply[sid] != kwp2000.NEGATIVE_RESPONSE {
		return nil
	}
	code := kwp2000.TranslateErrorCode(reply[sid+2])
	if code == nil {
		return fmt.Errorf("negative response to 0x%02X without error code", reply[sid+1])
	}
	return fmt.Errorf("negative response to 0x%02X: %w", reply[sid+1], code)
}
