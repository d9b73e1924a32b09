package progress

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTrackerTo(&buf, "report", 4)

	var wg sync.WaitGroup
	for _, step := range []string{"scm", "its", "mls"} {
		wg.Go(func() { tr.Tick(step) })
	}
	wg.Wait()
	tr.Fail("irc", errors.New("connection refused"))
	tr.Finish()

	assert.Contains(t, buf.String(), "report irc error: connection refused")
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() {
		tr.Tick("scm")
		tr.Fail("scm", errors.New("boom"))
		tr.Finish()
	})
}
