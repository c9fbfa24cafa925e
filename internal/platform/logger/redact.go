package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/solace-backend/internal/platform/envutil"
)

const redacted = "[REDACTED]"

// Keys containing any of these substrings are never logged. Vent and journal
// text is user-authored and counts as sensitive.
var redactKeys = []string{
	"token", "authorization", "password", "secret", "cookie", "api_key", "apikey",
	"email", "phone", "vent_text", "journal_text", "text_body",
}

// Keys containing any of these are replaced by a stable salted hash, so one
// user's log lines can still be correlated.
var hashKeys = []string{"user_id", "owner_id", "actor_id", "recipient"}

type policy struct {
	enabled bool
	salt    string
}

var (
	policyOnce sync.Once
	active     policy
)

func currentPolicy() policy {
	policyOnce.Do(func() {
		active = policy{
			enabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
			salt:    envutil.String("LOG_HASH_SALT", ""),
		}
	})
	return active
}

func sanitizeKVs(kv []interface{}) []interface{} {
	p := currentPolicy()
	if len(kv) == 0 || !p.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		out = append(out, key, p.value(strings.ToLower(key), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (p policy) value(key string, v interface{}) interface{} {
	switch {
	case containsAny(key, redactKeys):
		return redacted
	case containsAny(key, hashKeys):
		return p.hash(v)
	}
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = p.value(strings.ToLower(k), inner)
		}
		return out
	case string:
		if looksLikeJWT(t) {
			return redacted
		}
	}
	return v
}

func (p policy) hash(v interface{}) string {
	var raw string
	switch t := v.(type) {
	case nil:
		return ""
	case uuid.UUID:
		if t == uuid.Nil {
			return ""
		}
		raw = t.String()
	default:
		raw = strings.TrimSpace(fmt.Sprint(v))
	}
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func containsAny(key string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

