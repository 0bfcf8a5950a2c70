package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTestMode(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "true": true, "0": false, "": false, "yes": false} {
		assert.Equal(t, want, parseTestMode(raw), "raw=%q", raw)
	}
}
