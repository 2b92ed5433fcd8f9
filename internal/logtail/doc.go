// Package logtail reads the tail of taskdeck's log file for the Logs view.
//
// # Overview
//
// The TUI writes its log (retry notices, poll failures, action results) to a
// file because the terminal belongs to Bubble Tea. This package reads the
// last N lines of that file back, optionally keeping only lines that contain
// a filter string, and classifies each line so the UI can colour it.
//
// # Reading Log Files
//
// Read uses a ring buffer to extract the last maxLines from a file in a
// single pass with O(maxLines) memory:
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//	if err != nil {
//		return err
//	}
//
// ReadFiltered applies a case-insensitive substring filter before the ring
// buffer, so maxLines counts matching lines:
//
//	lines, err := logtail.ReadFiltered(cfg.LogPath(), 200, "retrying")
//
// A missing file returns no lines and no error; the log file is created
// lazily on the first log write.
//
// # Severity
//
// Classify maps a line to SeverityInfo, SeverityWarn or SeverityError based
// on the phrases the API client and poller log ("retrying", "timed out",
// "failed", "giving up").
package logtail
