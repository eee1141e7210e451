package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	log "github.com/sirupsen/logrus"
)

// logRequests логирует каждый запрос после завершения обработчика.
// Для долгоживущих SSE-подключений запись появляется при разрыве.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   m.Code,
			"duration": m.Duration,
		}).Info("handled")
	})
}

// requireAuth проверяет shared-secret из заголовка Authorization:
// base64(username:key), пара сверяется с хранилищем ключей. Ошибка
// авторизации отличима от остальных: клиент уходит запрашивать новые
// учётные данные, а не повторяет запрос вслепую.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, key, ok := parseCredential(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		valid, err := s.auth.ValidateKey(username, key)
		if err != nil {
			s.logger.WithError(err).Error("не удалось проверить ключ доступа")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !valid {
			s.logger.WithField("username", username).Info("отклонён неверный ключ доступа")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func parseCredential(header string) (username, key string, ok bool) {
	if header == "" {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
