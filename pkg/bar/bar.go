package bar

import (
	"io"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

func newBar(w io.Writer, length int, text string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("[cyan]"+text+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Progress renders transfer progress as a terminal bar.
type Progress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewProgress returns a Progress writing to w, stdout when w is nil.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = ansi.NewAnsiStdout()
	}
	return &Progress{w: w}
}

func (p *Progress) Start(total int, description string) {
	p.bar = newBar(p.w, total, description)
}

func (p *Progress) Add(n int) {
	if p.bar == nil {
		return
	}
	p.bar.Add(n)
}

func (p *Progress) Done() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	io.WriteString(p.w, "\n")
	p.bar = nil
}
