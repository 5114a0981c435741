package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaptureCalendarPNG_ValidatesOptions(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, CaptureCalendarPNG(ctx, Options{OutputPath: "x.png"}), ErrNoURL)
	assert.ErrorIs(t, CaptureCalendarPNG(ctx, Options{URL: "http://127.0.0.1/calendar/"}), ErrNoOutput)
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "u", OutputPath: "p"}
	assert.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{URL: "u", OutputPath: "p", Width: 800, Height: 600, Timeout: time.Second}
	assert.NoError(t, o.normalize())
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, time.Second, o.Timeout)
}
