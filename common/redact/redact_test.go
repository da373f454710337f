package redact_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/Kizuna/common/redact"
)

func TestString_RedactsSensitiveValues(t *testing.T) {
	key := "sk-test-1234567890"
	line := "embedder openai: Authorization: Bearer sk-test-1234567890 rejected"
	got := redact.String(line, key)
	const want = "embedder openai: Authorization: Bearer [REDACTED] rejected"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestString_SkipsShortValues(t *testing.T) {
	line := "abc token"
	if got := redact.String(line, "abc"); got != line {
		t.Fatalf("short value should not be redacted; got %q", got)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "url with password",
			dsn:  "postgres://kizuna:hunter2@db:5432/kizuna?sslmode=disable",
			want: "postgres://kizuna:[REDACTED]@db:5432/kizuna?sslmode=disable",
		},
		{
			name: "url without password",
			dsn:  "postgres://kizuna@db/kizuna",
			want: "postgres://kizuna@db/kizuna",
		},
		{
			name: "key value",
			dsn:  "host=db user=kizuna password=hunter2 dbname=kizuna",
			want: "host=db user=kizuna password=[REDACTED] dbname=kizuna",
		},
		{
			name: "key value quoted",
			dsn:  "host=db password='a b c' dbname=kizuna",
			want: "host=db password=[REDACTED] dbname=kizuna",
		},
		{
			name: "sqlite path",
			dsn:  "file:kizuna.db",
			want: "file:kizuna.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redact.DSN(tt.dsn)
			if got != tt.want {
				t.Errorf("DSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
			if strings.Contains(got, "hunter2") {
				t.Errorf("password leaked: %q", got)
			}
		})
	}
}
