package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTickWritten(t *testing.T) {
	before := testutil.ToFloat64(ticksWritten.WithLabelValues("TRADE"))
	ticksBefore, _, _, _ := GetStats()

	RecordTickWritten("TRADE")
	RecordTickWritten("TRADE")

	assert.Equal(t, before+2, testutil.ToFloat64(ticksWritten.WithLabelValues("TRADE")))
	ticks, _, last, uptime := GetStats()
	assert.Equal(t, ticksBefore+2, ticks)
	assert.WithinDuration(t, time.Now(), last, time.Second)
	assert.Greater(t, uptime, time.Duration(0))
}

func TestRecordErrors(t *testing.T) {
	_, errsBefore, _, _ := GetStats()
	sinkBefore := testutil.ToFloat64(sinkErrors)
	respBefore := testutil.ToFloat64(responseErrors.WithLabelValues("BAD_SEC"))

	RecordResponseError("BAD_SEC")
	RecordSinkError()

	_, errs, _, _ := GetStats()
	assert.Equal(t, errsBefore+2, errs)
	assert.Equal(t, sinkBefore+1, testutil.ToFloat64(sinkErrors))
	assert.Equal(t, respBefore+1, testutil.ToFloat64(responseErrors.WithLabelValues("BAD_SEC")))
}

func TestRecordEventAndFiles(t *testing.T) {
	evBefore := testutil.ToFloat64(eventsProcessed.WithLabelValues("RESPONSE"))
	filesBefore := testutil.ToFloat64(filesOpened)

	RecordEvent("RESPONSE")
	RecordFileOpened()
	RecordRequestDuration(1500 * time.Millisecond)

	assert.Equal(t, evBefore+1, testutil.ToFloat64(eventsProcessed.WithLabelValues("RESPONSE")))
	assert.Equal(t, filesBefore+1, testutil.ToFloat64(filesOpened))
}
