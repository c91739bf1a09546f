package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	cmd := rootCmd()

	for _, name := range []string{"version", "play", "housekeeper", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
		assert.NotNil(t, sub.RunE, name)
	}

	flag := cmd.PersistentFlags().Lookup("graceful-shutdown")
	require.NotNil(t, flag)
	assert.Equal(t, "0s", flag.DefValue)
}
