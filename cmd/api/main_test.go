package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLICommands(t *testing.T) {
	app := newCLI()

	for _, name := range []string{"serve", "migrate", "generate"} {
		assert.NotNil(t, app.Command(name), name)
	}

	gen := app.Command("generate")
	require.NotNil(t, gen)
	require.Len(t, gen.Flags, 1)
	assert.Equal(t, []string{"kind"}, gen.Flags[0].Names())
	assert.NotNil(t, app.Action)
}
