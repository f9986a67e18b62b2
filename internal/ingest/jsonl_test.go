package ingest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLSource(t *testing.T) {
	input := strings.Join([]string{
		`{"event_id": 1, "data": {"1": {"adc_sums": [10, 20]}}}`,
		``,
		`{"event_id": "bad"}`,
		`   `,
		`{"event_id": 2, "data": {"2": {"adc_sums": [30]}}}`,
	}, "\n")
	dec := newTestDecoder(t)
	src := NewJSONLSource(strings.NewReader(input), dec)
	ctx := context.Background()

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.EventID)

	ev, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.EventID)
	assert.Equal(t, []float64{30}, ev.Data["2"].ADCSums)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, Stats{Accepted: 2, Rejected: 1}, dec.Stats())
}

func TestJSONLSource_Cancelled(t *testing.T) {
	src := NewJSONLSource(strings.NewReader(`{"event_id": 1, "data": {}}`), newTestDecoder(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
