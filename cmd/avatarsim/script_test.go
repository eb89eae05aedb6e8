package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	steps, err := parseScript(" sad@2.5s , happy@1s,clip:wave@4s,neutral,thinking@1s")
	require.NoError(t, err)

	want := []scriptStep{
		{At: 0, Sentiment: "neutral"},
		{At: time.Second, Sentiment: "happy"},
		{At: time.Second, Sentiment: "thinking"},
		{At: 2500 * time.Millisecond, Sentiment: "sad"},
		{At: 4 * time.Second, Clip: "wave"},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestParseScript_Empty(t *testing.T) {
	steps, err := parseScript("")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestParseScript_Errors(t *testing.T) {
	for _, script := range []string{"happy@soon", "happy@-1s", "@1s", "clip:@1s"} {
		t.Run(script, func(t *testing.T) {
			_, err := parseScript(script)
			assert.Error(t, err)
		})
	}
}

func TestScriptPlayer(t *testing.T) {
	steps, err := parseScript("happy@1s,sad@2s,moon@2s")
	require.NoError(t, err)
	p := &scriptPlayer{steps: steps}

	assert.Empty(t, p.advance(500*time.Millisecond))
	due := p.advance(500 * time.Millisecond)
	require.Len(t, due, 1)
	assert.Equal(t, "happy", due[0].Sentiment)
	assert.False(t, p.done())

	due = p.advance(2 * time.Second)
	require.Len(t, due, 2)
	assert.Equal(t, "sad@2s", due[0].String())
	assert.Equal(t, "moon@2s", due[1].String())
	assert.True(t, p.done())
	assert.Empty(t, p.advance(time.Second))
}
