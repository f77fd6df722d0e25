package writer

import (
	"io"
	"os"

	"github.com/trickstertwo/hlog"
)

// Register this appender as the default for hlog.Default().
// Format can be controlled with HLOG_FORMAT=JSON|TEXT (case-insensitive).
func init() {
	hlog.RegisterDefaultAppenderFactory(func(w io.Writer) hlog.Appender {
		format, err := ParseFormat(os.Getenv("HLOG_FORMAT"))
		if err != nil {
			format = FormatText
		}
		return New(w, Options{Format: format})
	})
}
