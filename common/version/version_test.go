package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	oldV, oldC := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldV, oldC })

	Version, GitCommit = "v1.2.3", "abc123"
	got := Info()
	if !strings.HasPrefix(got, "kizuna v1.2.3 (abc123)") {
		t.Errorf("Info() = %q", got)
	}
}
