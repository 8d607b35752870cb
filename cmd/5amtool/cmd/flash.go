package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/roffe/gokline/pkg/firmware"
	"github.com/spf13/cobra"
)

func runFlash(cmd *cobra.Command, filename string) error {
	raw, err := firmware.Load(filename)
	if err != nil {
		return err
	}
	img, err := firmware.Encode(raw)
	if err != nil {
		return err
	}
	banner(cmd, green("loaded %d bytes from %s, crc16 %04X, checksum %04X", len(raw), filepath.Base(filename), fingerprint(raw), img.Checksum))

	yes, err := cmd.Flags().GetBool(flagYes)
	if err != nil {
		return err
	}
	if !yes {
		banner(cmd, yellow("The ECU flash will be erased. A failed write leaves the ECU unable to start."))
		ok, err := yesNo()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	c, t, err := session(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	start := time.Now()
	if err := c.FlashECU(ctx, img); err != nil {
		return failed(cmd, "flash", err)
	}
	banner(cmd, green("flashed %s in %s", filepath.Base(filename), time.Since(start).Round(time.Second)))
	return nil
}

func yesNo() (bool, error) {
	prompt := promptui.Select{
		Label:    "Continue? [Yes/No]",
		HideHelp: true,
		Items:    []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return result == "Yes", nil
}
