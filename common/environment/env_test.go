package environment_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Kizuna/common/environment"
)

func TestString(t *testing.T) {
	t.Setenv("KIZUNA_TEST_EMPTY", "")
	if v, ok := environment.String("KIZUNA_TEST_EMPTY"); !ok || v != "" {
		t.Errorf("String(set-but-empty) = (%q, %v), want (\"\", true)", v, ok)
	}
	if _, ok := environment.String("KIZUNA_TEST_UNSET_XYZ"); ok {
		t.Error("String(unset) reported set")
	}
}

func TestStringOr(t *testing.T) {
	t.Setenv("KIZUNA_TEST_STORE", "postgres")
	if got := environment.StringOr("KIZUNA_TEST_STORE", "sqlite"); got != "postgres" {
		t.Errorf("expected %q, got %q", "postgres", got)
	}
	t.Setenv("KIZUNA_TEST_STORE", "")
	if got := environment.StringOr("KIZUNA_TEST_STORE", "sqlite"); got != "sqlite" {
		t.Errorf("expected default for empty value, got %q", got)
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("KIZUNA_TEST_DIMS", "128")
	if got := environment.IntOr("KIZUNA_TEST_DIMS", 256); got != 128 {
		t.Errorf("expected 128, got %d", got)
	}
	t.Setenv("KIZUNA_TEST_DIMS", "lots")
	if got := environment.IntOr("KIZUNA_TEST_DIMS", 256); got != 256 {
		t.Errorf("expected default for malformed value, got %d", got)
	}
}

func TestInt64Or(t *testing.T) {
	t.Setenv("KIZUNA_TEST_COST", "67108864")
	if got := environment.Int64Or("KIZUNA_TEST_COST", 1); got != 64<<20 {
		t.Errorf("expected %d, got %d", 64<<20, got)
	}
	if got := environment.Int64Or("KIZUNA_TEST_COST_MISSING", 7); got != 7 {
		t.Errorf("expected default, got %d", got)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("KIZUNA_TEST_TIMEOUT", "5s")
	if got := environment.DurationOr("KIZUNA_TEST_TIMEOUT", time.Minute); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
	t.Setenv("KIZUNA_TEST_TIMEOUT", "soon")
	if got := environment.DurationOr("KIZUNA_TEST_TIMEOUT", time.Minute); got != time.Minute {
		t.Errorf("expected default for malformed value, got %v", got)
	}
}
