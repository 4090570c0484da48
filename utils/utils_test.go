package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Nowhere/Atlantis"))
}

func TestFormatLocal(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	assert.Equal(t, "2023-11-15 00:13:20", FormatLocal(ts, time.FixedZone("CEST", 2*60*60)))
	assert.Equal(t, "2023-11-14 22:13:20", FormatLocal(ts, nil))
}
