package version

import "testing"

func TestInfo(t *testing.T) {
	if got := Info(); got != "bimquery dev (commit unknown, built unknown)" {
		t.Errorf("Info() = %q", got)
	}
}
