package domain

import (
	"encoding/json"
	"time"
)

// ParseLock reads a stored seed-lock value as of now. Falsy values and lapsed
// leases are free; a truthy value without an owner (a bare flag) is held
// forever by "unknown".
func ParseLock(raw json.RawMessage, now time.Time) (LockInfo, bool) {
	if !Truthy(raw) {
		return LockInfo{}, false
	}
	var info LockInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.Owner == "" {
		return LockInfo{Owner: "unknown"}, true
	}
	if !info.ExpiresAt.IsZero() && !now.Before(info.ExpiresAt) {
		return LockInfo{}, false
	}
	return info, true
}

// Truthy mirrors JSON truthiness: null, false, 0 and "" are false.
func Truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
