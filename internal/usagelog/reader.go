package usagelog

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
)

// FileStats summarizes one file's scan for error reporting.
type FileStats struct {
	Path   string
	Lines  int
	Events int
	Failed int
}

// ReadFile parses every usage record in a file, filtering through the
// deduper when one is given. Parse failures are counted and skipped; they
// never abort the file.
func ReadFile(path string, dedup *Deduper) ([]Event, FileStats) {
	stats := FileStats{Path: path}

	f, err := os.Open(path)
	if err != nil {
		warnf("open_file", "file=%s err=%v", path, err)
		return nil, stats
	}
	defer f.Close()

	origin := OriginForPath(path)
	var events []Event

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 256*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line size

	for scanner.Scan() {
		stats.Lines++
		ev, err := ParseLine(scanner.Bytes(), origin)
		if err != nil {
			stats.Failed++
			continue
		}
		if ev == nil {
			continue
		}
		if dedup != nil && !dedup.Observe(*ev) {
			continue
		}
		events = append(events, *ev)
		stats.Events++
	}
	if err := scanner.Err(); err != nil {
		warnf("scan_file", "file=%s err=%v", path, err)
	}
	if stats.Failed > 0 {
		warnf("parse_failures", "file=%s count=%d", path, stats.Failed)
	}

	return events, stats
}

// readCtxEvery bounds how often the incremental reader polls its context.
const readCtxEvery = 256

// ReadFileFrom parses usage records starting at a byte offset and returns
// the offset of the first unconsumed byte. Only complete lines are
// consumed: a trailing partial line (still being flushed by the writer) is
// left for the next call. A context deadline abandons the file mid-read;
// events parsed so far and the advanced offset are still returned.
func ReadFileFrom(ctx context.Context, path string, offset int64, dedup *Deduper) ([]Event, int64, FileStats, error) {
	stats := FileStats{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return nil, offset, stats, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, stats, err
	}

	origin := OriginForPath(path)
	reader := bufio.NewReader(f)
	pos := offset
	var events []Event

	for {
		if stats.Lines%readCtxEvery == 0 {
			select {
			case <-ctx.Done():
				return events, pos, stats, ctx.Err()
			default:
			}
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return events, pos, stats, err
		}
		atEOF := errors.Is(err, io.EOF)
		if atEOF && len(line) > 0 {
			// Incomplete trailing line: leave it unconsumed.
			return events, pos, stats, nil
		}
		if len(line) == 0 {
			return events, pos, stats, nil
		}

		stats.Lines++
		pos += int64(len(line))

		ev, perr := ParseLine(line, origin)
		if perr != nil {
			stats.Failed++
			continue
		}
		if ev == nil {
			continue
		}
		if dedup != nil && !dedup.Observe(*ev) {
			continue
		}
		events = append(events, *ev)
		stats.Events++
	}
}
