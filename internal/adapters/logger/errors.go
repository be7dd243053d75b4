package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/ui/style"
)

// messager describes an error that can report its own message without the
// chain, as zerr.Error does.
type messager interface {
	Message() string
}

// metadataer describes an error carrying structured metadata, as zerr.Error does.
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one level of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks the error chain. Wrappers without a message of
// their own, such as those added by zerr.With, donate their metadata to the
// next entry with a message.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	merge := func(meta map[string]any) {
		if len(meta) == 0 {
			return
		}
		if pending == nil {
			pending = make(map[string]any, len(meta))
		}
		maps.Copy(pending, meta)
	}

	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			pending = nil
			break
		}
		if md, ok := current.(metadataer); ok {
			merge(md.Metadata())
		}
		if m.Message() != "" {
			entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: pending})
			pending = nil
		}
		current = errors.Unwrap(current)
	}

	if len(pending) > 0 && len(entries) > 0 {
		last := &entries[len(entries)-1]
		if last.Metadata == nil {
			last.Metadata = pending
		} else {
			maps.Copy(last.Metadata, pending)
		}
	}
	return entries
}

// formatErrorEntries renders entries as an "Error:" line followed by a
// "Caused by:" list. Metadata is printed below its entry, sorted by key.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		var indent string
		if i == 0 {
			lines = append(lines, "Error: "+msgLines[0])
			indent = "       "
		} else {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			lines = append(lines, "    "+style.Arrow+" "+msgLines[0])
			indent = "      "
		}
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, k := range sortedKeys(entry.Metadata) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}

	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
