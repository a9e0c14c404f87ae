package config

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// WardenFormatter renders compact single-line logfmt-ish output with a
// colored level tag.
type WardenFormatter struct{}

func (f *WardenFormatter) Format(entry *log.Entry) ([]byte, error) {
	const (
		red    = 31
		green  = 32
		yellow = 33
		blue   = 36
		gray   = 37
	)

	levelColor := blue
	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		levelColor = gray
	case log.InfoLevel:
		levelColor = green
	case log.WarnLevel:
		levelColor = yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = red
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\x1b[%dm%s\x1b[0m %s",
		levelColor,
		strings.ToUpper(entry.Level.String())[:4],
		entry.Time.Format("2006-01-02 15:04:05.000"),
	)
	fmt.Fprintf(&b, " %s", entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
