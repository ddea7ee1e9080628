package live

import "log"

func logf(event, format string, args ...any) {
	if format == "" {
		log.Printf("live level=info event=%s", event)
		return
	}
	log.Printf("live level=info event=%s "+format, append([]any{event}, args...)...)
}

func warnf(event, format string, args ...any) {
	if format == "" {
		log.Printf("live level=warn event=%s", event)
		return
	}
	log.Printf("live level=warn event=%s "+format, append([]any{event}, args...)...)
}
