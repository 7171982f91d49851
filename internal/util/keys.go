package util

import "strings"

// StorageKey isolates key under namespace ns ("" => no namespace).
func StorageKey(ns, key string) string {
	if ns == "" {
		return key
	}
	var b strings.Builder
	b.Grow(len(ns) + 1 + len(key))
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// SessionKey derives the cache key of a session id, e.g. "_session_id:<sid>".
func SessionKey(prefix, sid string) string {
	return prefix + sid
}
