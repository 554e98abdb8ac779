package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/fetchcache"
)

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.Warn("endpoint failed", fetchcache.Fields{"endpoint": "/a", "err": errors.New("502")})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output not JSON: %v: %s", err, buf.String())
	}
	if got["level"] != "warn" || got["message"] != "endpoint failed" {
		t.Fatalf("entry = %v", got)
	}
	if got["endpoint"] != "/a" || got["err"] != "502" || got["component"] != "fetchcache" {
		t.Fatalf("fields = %v", got)
	}
}

func TestZerologLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf).Level(zerolog.ErrorLevel))
	l.Info("hidden", fetchcache.Fields{"a": 1})
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %s", buf.String())
	}
}
