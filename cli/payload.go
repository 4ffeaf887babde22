package cli

import (
	"fmt"
	"sort"
	"strings"

	"macroclock/settings"
)

// parseAssignments turns `key=value` arguments into record fields. The
// literals true and false become booleans; everything else stays a string,
// which is what the configuration pages send.
func parseAssignments(args []string) (settings.Record, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected key=value")
	}
	rec := make(settings.Record, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", arg)
		}
		switch value {
		case "true":
			rec[key] = true
		case "false":
			rec[key] = false
		default:
			rec[key] = value
		}
	}
	return rec, nil
}

// mergeRecord overlays changes on a copy of base.
func mergeRecord(base, changes settings.Record) settings.Record {
	merged := base.Clone()
	if merged == nil {
		merged = make(settings.Record, len(changes))
	}
	for k, v := range changes {
		merged[k] = v
	}
	return merged
}

// encodeResponse builds the payload a configuration page returns on close.
func encodeResponse(rec settings.Record) (string, error) {
	text, err := settings.Encode(rec)
	if err != nil {
		return "", err
	}
	return settings.EncodeURIComponent(text), nil
}

// normalizePayload accepts either raw JSON typed at the prompt or an
// already encoded response.
func normalizePayload(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return settings.EncodeURIComponent(input)
	}
	return input
}

func sortedKeys(rec settings.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
