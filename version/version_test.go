package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestShort verifies the single-line version string carries the short commit and the dirty marker.
func TestShort(t *testing.T) {
	assert.EqualValues(t, "0.1.0", Info{Version: "0.1.0"}.Short())
	assert.EqualValues(t, "0.1.0+1a2b3c4", Info{Version: "0.1.0", GitCommit: "1a2b3c4d5e6f"}.Short())
	assert.EqualValues(t, "0.1.0+abc-dirty", Info{Version: "0.1.0", GitCommit: "abc", GitTreeDirty: true}.Short())
	assert.NotEmpty(t, GetInfo().GoVersion)
}
