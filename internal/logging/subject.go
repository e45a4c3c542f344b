package logging

import "strings"

// FormatSubject builds the component/route/transfer prefix used in console
// output, e.g. "dispatcher [reports · 3f2a9c1b]". Transfer IDs are shortened
// to their first eight characters.
func FormatSubject(component, route, transferID string) string {
	component = strings.TrimSpace(component)
	route = strings.TrimSpace(route)
	transferID = strings.TrimSpace(transferID)
	if len(transferID) > 8 {
		transferID = transferID[:8]
	}

	tags := make([]string, 0, 2)
	if route != "" {
		tags = append(tags, route)
	}
	if transferID != "" {
		tags = append(tags, transferID)
	}

	switch {
	case component != "" && len(tags) > 0:
		return component + " [" + strings.Join(tags, " · ") + "]"
	case component != "":
		return component
	case len(tags) > 0:
		return "[" + strings.Join(tags, " · ") + "]"
	default:
		return ""
	}
}
