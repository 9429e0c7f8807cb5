package utils

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

func SendJson(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(ToJson(value))
}

func SendError(w http.ResponseWriter, statusCode int, message string) {
	log.Debug(message)
	SendJson(w, statusCode, map[string]string{
		"error": message,
	})
}
