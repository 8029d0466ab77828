// Package logger centralise l'init slog (auparavant dupliquée dans chaque main).
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init configure le logger par défaut : Text en local (debug), JSON ailleurs.
// La CLI écrit ses résultats sur stdout, les logs partent donc sur stderr.
func Init(env string) *slog.Logger {
	return InitTo(os.Stderr, env)
}

func InitTo(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler
	if env == "local" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}
