package cmd

import (
	"testing"

	"github.com/magiconair/properties/assert"
)

func TestParseTimes(t *testing.T) {
	times, err := parseTimes("0, 0.5 ,1.0")
	if err != nil {
		panic(err)
	}
	assert.Equal(t, times, []float64{0, 0.5, 1})
	if _, err = parseTimes("0,abc"); err == nil {
		t.Errorf("expected an error for a bad time value")
	}
}
