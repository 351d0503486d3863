package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, v, built string) {
	t.Helper()
	oldV, oldB := Version, BuildTime
	t.Cleanup(func() { Version, BuildTime = oldV, oldB })
	Version, BuildTime = v, built
}

func TestString(t *testing.T) {
	stamp(t, "v1.2.3", "2024-05-01")
	assert.Equal(t, "objectdesk v1.2.3 (built 2024-05-01)", String())
}

func TestAppID(t *testing.T) {
	stamp(t, "v1.2.3", "")
	assert.Equal(t, "objectdesk/v1.2.3", AppID())

	stamp(t, " v1.2.3 beta ", "")
	assert.Equal(t, "objectdesk/v1.2.3-beta", AppID())

	stamp(t, "v1.2.3-rc.1+build.20240501", "")
	assert.Len(t, AppID(), maxAppIDLen)
	assert.Equal(t, "objectdesk/v1.2.3-rc.1+b", AppID())
}
