package rest

import (
	"brokerage-backoffice/internal/contextkeys"
	"net/http"
	"strings"
)

// AuthMiddleware переносит bearer-токен пользователя в контекст, чтобы клиент CRM
// переслал его дальше. Проверку токена выполняет удаленный API: без заголовка
// запрос уходит с сервисным токеном, неверный токен вернет 401 от API.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			WriteJSONError(w, http.StatusUnauthorized, "Authentication error: malformed Authorization header")
			return
		}
		ctx := contextkeys.ContextWithCredential(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
