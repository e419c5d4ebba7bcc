package gpu

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettingsFailOpen(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, ModeServerless, settings.Mode)
	assert.Equal(t, "", settings.DedicatedURL)
	assert.Equal(t, 5*time.Second, settings.SubmitTimeout)
}

func TestStaticSettingsFillsTimeout(t *testing.T) {
	source := StaticSettings{Settings: RoutingSettings{Mode: ModeHybrid, DedicatedURL: "http://pod:8188"}}

	settings := source.Current(context.Background())

	assert.Equal(t, ModeHybrid, settings.Mode)
	assert.Equal(t, 5*time.Second, settings.SubmitTimeout)
}
