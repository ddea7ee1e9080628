package usagelog

import "log"

// Diagnostics go through the stdlib logger in level=/event= form; main
// discards the logger output unless verbose mode is on.

func logf(event, format string, args ...any) {
	if format == "" {
		log.Printf("usagelog level=info event=%s", event)
		return
	}
	log.Printf("usagelog level=info event=%s "+format, append([]any{event}, args...)...)
}

func warnf(event, format string, args ...any) {
	if format == "" {
		log.Printf("usagelog level=warn event=%s", event)
		return
	}
	log.Printf("usagelog level=warn event=%s "+format, append([]any{event}, args...)...)
}
