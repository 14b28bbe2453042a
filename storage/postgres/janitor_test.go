package pgstore

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestJanitor_InvalidSpec(t *testing.T) {
	_, err := NewJanitor(&countingPurger{}, "not a schedule", quietLogger())
	assert.Error(t, err)
}

func TestJanitor_RunPurges(t *testing.T) {
	p := &countingPurger{}
	j, err := NewJanitor(p, "", quietLogger())
	require.NoError(t, err)

	j.run()
	p.err = errors.New("db down")
	j.run()
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestJanitor_StartStop(t *testing.T) {
	j, err := NewJanitor(&countingPurger{}, "@every 1h", quietLogger())
	require.NoError(t, err)
	j.Start()
	j.Stop(context.Background())
}
