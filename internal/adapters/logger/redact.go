package logger_adapter

import "strings"

// Ключи, значения которых никогда не попадают в лог: bearer-токен пересылается в удаленный API.
var sensitiveKeys = []string{"authorization", "token", "password", "secret"}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return value
}
