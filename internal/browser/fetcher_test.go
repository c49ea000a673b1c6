package browser

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	f := New(Options{})
	assert.Equal(t, 2*time.Second, f.opts.Delay)
	assert.Equal(t, 30*time.Second, f.opts.Timeout)

	// Close without a launched browser is a no-op.
	f.Close()
}

func TestPageNotFound(t *testing.T) {
	assert.True(t, (&Page{Status: http.StatusNotFound}).NotFound())
	assert.False(t, (&Page{Status: http.StatusOK}).NotFound())
	assert.False(t, (&Page{}).NotFound())
}
