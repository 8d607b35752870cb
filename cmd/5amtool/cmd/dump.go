package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/roffe/gokline/pkg/ecu/iaw5am"
	"github.com/spf13/cobra"
)

// dumpFile creates its file on the first write, a session failing before
// the first memory read leaves nothing on disk.
type dumpFile struct {
	name string
	f    *os.File
	bw   *bufio.Writer
}

func (d *dumpFile) Write(p []byte) (int, error) {
	if d.f == nil {
		f, err := os.Create(d.name)
		if err != nil {
			return 0, fmt.Errorf("failed to create dump file: %w", err)
		}
		d.f = f
		d.bw = bufio.NewWriter(f)
	}
	return d.bw.Write(p)
}

func (d *dumpFile) Flush() error {
	if d.bw == nil {
		return nil
	}
	return d.bw.Flush()
}

func (d *dumpFile) Close() error {
	if d.f == nil {
		return nil
	}
	f := d.f
	d.f = nil
	if err := d.bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync dump file: %w", err)
	}
	return f.Close()
}

func runDump(cmd *cobra.Command, filename string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	c, t, err := session(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	out := &dumpFile{name: filename}
	defer out.Close()

	start := time.Now()
	if err := c.DumpECU(ctx, out); err != nil {
		return failed(cmd, "dump", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if len(b) != iaw5am.DumpSize {
		return fmt.Errorf("dump file is %d bytes, expected %d", len(b), iaw5am.DumpSize)
	}
	banner(cmd, green("dumped %d bytes to %s in %s, crc16 %04X", len(b), filename, time.Since(start).Round(time.Second), fingerprint(b)))
	return nil
}
