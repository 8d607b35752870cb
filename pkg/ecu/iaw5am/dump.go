package iaw5am

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/roffe/gokline"
)

const (
	BlockSize  = 0x4000
	BlockCount = 20
	DumpSize   = BlockSize * BlockCount

	chunkSize       = 0x20
	chunkStart      = 0x4000
	chunkEnd        = 0x8000
	minChunkReply   = 53
	chunkDataOffset = 20
)

// skipBlock reports blocks the ECU does not hand out, they are written as
// erased flash instead.
func skipBlock(block int) bool {
	return block > 1 && block < 6
}

type flusher interface {
	Flush() error
}

// DumpECU brings up a read session and streams the whole flash to w.
func (c *Client) DumpECU(ctx context.Context, w io.Writer) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	if err := c.OpenExtendedSession(ctx, modeRead); err != nil {
		return err
	}
	if err := c.SetBaudRate(c.cfg.ReadBaudRate); err != nil {
		return err
	}
	if err := c.RequestSecurityAccess(ctx); err != nil {
		return err
	}
	return c.ReadMemory(ctx, w)
}

// ReadMemory copies all blocks to w in 32 byte chunks. The session must be
// authenticated. w is flushed after every chunk when it supports it.
func (c *Client) ReadMemory(ctx context.Context, w io.Writer) error {
	filler := bytes.Repeat([]byte{0xFF}, BlockSize)
	start := time.Now()
	c.log.Info("beginning firmware download")
	c.cfg.Progress.Start(DumpSize, "dumping ECU")
	defer c.cfg.Progress.Done()

	for block := 0; block < BlockCount; block++ {
		if skipBlock(block) {
			if err := c.write(w, filler); err != nil {
				return gokline.Step(fmt.Sprintf("write filler block %d", block), err)
			}
			c.cfg.Progress.Add(BlockSize)
			continue
		}
		if _, err := c.Exchange(ctx, msgRequestBlock(block)); err != nil {
			return gokline.Step(fmt.Sprintf("request block %d", block), err)
		}
		for offset := chunkStart; offset < chunkEnd; offset += chunkSize {
			step := fmt.Sprintf("read block %d offset 0x%04X", block, offset-chunkStart)
			resp, err := c.Exchange(ctx, msgReadMemory(uint16(offset)))
			if err != nil {
				return gokline.Step(step, err)
			}
			if len(resp) < minChunkReply {
				return gokline.Step(step, fmt.Errorf("%w: got %d bytes, want at least %d", gokline.ErrPartialBlock, len(resp), minChunkReply))
			}
			data := resp[chunkDataOffset : len(resp)-1]
			if err := c.write(w, data); err != nil {
				return gokline.Step(step, err)
			}
			c.cfg.Progress.Add(len(data))
		}
		c.log.Debugf("block %d done", block)
	}
	c.log.Infof("download done, took: %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *Client) write(w io.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush dump: %w", err)
		}
	}
	return nil
}
