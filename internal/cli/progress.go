package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// docProgress shows a spinner with a running document count; the
// collection size is unknown until the source is exhausted.
type docProgress struct {
	bar *progressbar.ProgressBar
}

func newDocProgress(w io.Writer, visible bool, description string) *docProgress {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
	return &docProgress{bar: bar}
}

func (p *docProgress) Update(done int64) {
	p.bar.Set64(done)
}

func (p *docProgress) Finish() {
	p.bar.Finish()
}
