package ratecontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimitForProvider(t *testing.T) {
	assert.Equal(t, 30, LimitForProvider("openai").RPM)
	assert.Equal(t, 20, LimitForProvider("Anthropic").RPM)
	assert.Equal(t, 40, LimitForProvider(" google ").RPM)
	// Unrecognized providers get a non-zero fallback.
	assert.Greater(t, LimitForProvider("no-such-provider").RPM, 0)
}

func TestDelayForRequest(t *testing.T) {
	// 30 requests per minute is one request every two seconds.
	assert.Equal(t, 2*time.Second, DelayForRequest("openai"))
	assert.Equal(t, 3*time.Second, DelayForRequest("anthropic"))
}

func TestDelayForLimitBounds(t *testing.T) {
	assert.Equal(t, time.Duration(0), delayForLimit(RateLimit{}))
	assert.Equal(t, time.Duration(0), delayForLimit(RateLimit{RPM: -5}))
	// One request per minute is the slowest spacing.
	assert.Equal(t, time.Minute, delayForLimit(RateLimit{RPM: 1}))
}

func TestCombineLimits(t *testing.T) {
	assert.Equal(t, 10, CombineLimits(RateLimit{RPM: 10}, RateLimit{RPM: 30}).RPM)
	assert.Equal(t, 10, CombineLimits(RateLimit{RPM: 30}, RateLimit{RPM: 10}).RPM)
	assert.Equal(t, 30, CombineLimits(RateLimit{}, RateLimit{RPM: 30}).RPM)
	assert.Equal(t, 0, CombineLimits(RateLimit{}, RateLimit{}).RPM)
}

func TestFetchPacingBand(t *testing.T) {
	band := FetchPacingBand()
	assert.Greater(t, band.Min, time.Duration(0))
	assert.GreaterOrEqual(t, band.Max, band.Min)
}

func TestReloadIsSafe(t *testing.T) {
	before := LimitForProvider("openai")
	Reload()
	assert.Equal(t, before, LimitForProvider("openai"))
}
