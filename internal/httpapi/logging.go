package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("DEPLOYD_LOG_LEVEL"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logEvent emits a structured event through zlog when installed,
// otherwise via the standard logger.
func logEvent(reqID, msg string, status int, dur time.Duration, err error, fields map[string]string) {
	if zlog != nil {
		var ev *zerolog.Event
		if err != nil {
			ev = zlog.Error().Err(err)
		} else {
			ev = zlog.Info()
		}
		if reqID != "" {
			ev = ev.Str("request_id", reqID)
		}
		if status != 0 {
			ev = ev.Int("status", status)
		}
		if dur != 0 {
			ev = ev.Dur("duration", dur)
		}
		for k, v := range fields {
			ev = ev.Str(k, v)
		}
		ev.Msg(msg)
		return
	}
	if err != nil {
		log.Printf("%s request_id=%s status=%d dur=%s err=%v", msg, reqID, status, dur, err)
		return
	}
	log.Printf("%s request_id=%s status=%d dur=%s fields=%v", msg, reqID, status, dur, fields)
}
