package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/roffe/gokline"
	"github.com/roffe/gokline/adapter/kkl"
	"github.com/roffe/gokline/adapter/virtual"
	"github.com/roffe/gokline/pkg/bar"
	"github.com/roffe/gokline/pkg/ecu/iaw5am"
	"github.com/sigurn/crc16"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	flagPort    = "port"
	flagOutput  = "output"
	flagWrite   = "write"
	flagVerbose = "verbose"
	flagTimeout = "timeout"
	flagYes     = "yes"

	portVirtual = "virtual"
)

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()

	crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
)

var errExclusive = errors.New("-o and -w are mutually exclusive")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "5amtool",
		Short: "Marelli IAW 5AM flash tool",
		Long: `Dumps and writes the flash of Marelli IAW 5AM ECUs over a KKL cable.

  5amtool -i /dev/ttyUSB0 -o dump.bin
  5amtool -i /dev/ttyUSB0 -w firmware.bin`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cmd.Flags().GetString(flagOutput)
			if err != nil {
				return err
			}
			write, err := cmd.Flags().GetString(flagWrite)
			if err != nil {
				return err
			}
			switch {
			case output != "" && write != "":
				return errExclusive
			case output != "":
				return runDump(cmd, output)
			case write != "":
				return runFlash(cmd, write)
			}
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "i", "", `serial port of the KKL cable, "virtual" for a simulated ECU`)
	pf.BoolP(flagVerbose, "v", false, "log every frame")
	pf.IntP(flagTimeout, "t", 50, "idle read timeout in milliseconds")

	f := rootCmd.Flags()
	f.StringP(flagOutput, "o", "", "dump the ECU flash to file")
	f.StringP(flagWrite, "w", "", "write firmware file to the ECU")
	f.BoolP(flagYes, "y", false, "do not ask before erasing the flash")

	rootCmd.AddCommand(newPortsCmd())
	return rootCmd
}

// Execute runs the command line, the returned error decides the exit status.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	l := log.New()
	l.Out = w
	l.Formatter = &log.TextFormatter{FullTimestamp: true}
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// session opens the transport named by the port flag and returns a client
// for it. The caller must close the transport.
func session(cmd *cobra.Command, opts ...gokline.Opts) (*iaw5am.Client, gokline.Transport, error) {
	pf := cmd.Flags()
	port, err := pf.GetString(flagPort)
	if err != nil {
		return nil, nil, err
	}
	verbose, err := pf.GetBool(flagVerbose)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := pf.GetInt(flagTimeout)
	if err != nil {
		return nil, nil, err
	}

	l := newLogger(cmd.ErrOrStderr(), verbose)
	base := []gokline.Opts{
		gokline.OptDebug(verbose),
		gokline.OptTimeout(timeout),
		gokline.OptLogger(l),
		gokline.OptProgress(bar.NewProgress(progressOutput(cmd))),
	}

	var t gokline.Transport
	switch port {
	case "":
		return nil, nil, errors.New(`no port given, use -i (list them with "5amtool ports")`)
	case portVirtual:
		t = virtual.New(iaw5am.CalculateKey)
		// the simulated ECU answers instantly
		base = append(base, gokline.OptChallengeDelay(0), gokline.OptSettle(0, 0))
	default:
		k, err := kkl.Open(port, l)
		if err != nil {
			return nil, nil, err
		}
		t = k
	}

	cfg, err := gokline.NewConfig(append(base, opts...)...)
	if err != nil {
		t.Close()
		return nil, nil, err
	}
	c, err := iaw5am.New(t, cfg)
	if err != nil {
		t.Close()
		return nil, nil, err
	}
	return c, t, nil
}

// progressOutput is the command output, nil when that is the terminal so
// the bar gets an ANSI aware stdout.
func progressOutput(cmd *cobra.Command) io.Writer {
	out := cmd.OutOrStdout()
	if out == os.Stdout {
		return nil
	}
	return out
}

func fingerprint(b []byte) uint16 {
	return crc16.Checksum(b, crcTable)
}

func banner(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}

// failed prints a red banner for err and hands it back.
func failed(cmd *cobra.Command, step string, err error) error {
	banner(cmd, red("/!\\ %s failed: %v", step, err))
	return err
}
