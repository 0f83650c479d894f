package contextkeys

import "context"

type credentialKeyType struct{}

var credentialKey = credentialKeyType{}

// ContextWithCredential сохраняет bearer-токен пользователя, пришедший с запросом.
// Токен выдает и обновляет внешний провайдер аутентификации, сервис его только пересылает.
func ContextWithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey, token)
}

// CredentialFromContext возвращает bearer-токен или пустую строку.
func CredentialFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(credentialKey).(string); ok {
		return token
	}
	return ""
}
