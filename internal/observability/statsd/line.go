package statsd

import (
	"sort"
	"strconv"
	"strings"
)

// Metric type suffixes in the StatsD line protocol.
const (
	kindCount  = "c"
	kindGauge  = "g"
	kindTiming = "ms"
)

// tagReplacer strips characters that would break a DogStatsD line.
var tagReplacer = strings.NewReplacer("|", "_", ",", "_", "#", "_", "\n", "_", "\r", "_")

// formatLine renders "<prefix>.<name>:<value>|<kind>|#k:v,..." or "" when name is empty.
func formatLine(prefix, name, value, kind string, global, local map[string]string) string {
	metric := metricName(prefix, name)
	if metric == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(metric) + len(value) + len(kind) + 32)
	b.WriteString(metric)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)
	b.WriteString(formatTags(global, local))
	return b.String()
}

func metricName(prefix, name string) string {
	if name == "" {
		return ""
	}
	normalized := normalizeMetricName(name)
	if prefix == "" {
		return normalized
	}
	if normalized == "" {
		return prefix
	}
	return prefix + "." + normalized
}

func sanitizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), ".")
}

func normalizeMetricName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.NewReplacer(" ", "_", "/", "_", ":", "_", "|", "_", "@", "_").Replace(n)
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// formatTags merges global and local tags (local wins) into a sorted "|#k:v" suffix.
func formatTags(global, local map[string]string) string {
	if len(global)+len(local) == 0 {
		return ""
	}

	merged := cloneTags(global)
	for k, v := range local {
		if key := sanitizeTagKey(k); key != "" {
			merged[key] = sanitizeTagValue(v)
		}
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("|#")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(merged[k])
	}
	return b.String()
}

func cloneTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		if key := sanitizeTagKey(k); key != "" {
			cp[key] = sanitizeTagValue(v)
		}
	}
	return cp
}

func sanitizeTagKey(k string) string {
	return strings.ReplaceAll(tagReplacer.Replace(strings.TrimSpace(k)), ":", "_")
}

func sanitizeTagValue(v string) string {
	return tagReplacer.Replace(strings.TrimSpace(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
