package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("track %d", 7)
	assert.Equal(t, []string{"track 7"}, got)

	// nil installs a no-op and must not call the previous logger
	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, got, 1)
}

func TestDebugfHonoursVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	calls := 0
	SetLogger(func(string, ...interface{}) { calls++ })

	SetVerbose(false)
	Debugf("quiet")
	assert.Equal(t, 0, calls)
	assert.False(t, Verbose())

	SetVerbose(true)
	Debugf("loud")
	assert.Equal(t, 1, calls)
	assert.True(t, Verbose())
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}
