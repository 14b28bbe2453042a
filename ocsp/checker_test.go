package ocspkit_test

import (
	"context"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ocspkit "github.com/PaulFidika/webeid/ocsp"
)

type fakeResponder struct {
	resp  *ocspkit.Response
	err   error
	block chan struct{}
}

func (f *fakeResponder) Check(ctx context.Context, cert, issuer *x509.Certificate) (*ocspkit.Response, error) {
	if f.block != nil {
		// Ignores ctx on purpose.
		<-f.block
	}
	return f.resp, f.err
}

func freshResponse(now time.Time, status ocspkit.Status) *ocspkit.Response {
	return &ocspkit.Response{
		Status:     status,
		ThisUpdate: now.Add(-time.Minute),
		NextUpdate: now.Add(time.Hour),
	}
}

func TestChecker_Statuses(t *testing.T) {
	now := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	cases := []struct {
		name   string
		status ocspkit.Status
		want   ocspkit.Status
		err    error
	}{
		{"good", ocspkit.StatusGood, ocspkit.StatusGood, nil},
		{"revoked", ocspkit.StatusRevoked, ocspkit.StatusRevoked, ocspkit.ErrRevoked},
		{"unknown", ocspkit.StatusUnknown, ocspkit.StatusUnknown, ocspkit.ErrCheckFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ocspkit.NewChecker(&fakeResponder{resp: freshResponse(now, tc.status)}, ocspkit.WithClock(clock))
			got, err := c.Check(context.Background(), &x509.Certificate{}, &x509.Certificate{}, time.Second)
			assert.Equal(t, tc.want, got)
			if tc.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestChecker_TimeoutIsHardBound(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	c := ocspkit.NewChecker(&fakeResponder{block: block})
	start := time.Now()
	status, err := c.Check(context.Background(), &x509.Certificate{}, &x509.Certificate{}, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ocspkit.ErrCheckFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ocspkit.StatusUnknown, status)
	assert.Less(t, elapsed, time.Second)
}

func TestChecker_TransportError(t *testing.T) {
	c := ocspkit.NewChecker(&fakeResponder{err: errors.New("connection refused")})
	_, err := c.Check(context.Background(), &x509.Certificate{}, &x509.Certificate{}, time.Second)
	require.ErrorIs(t, err, ocspkit.ErrCheckFailed)
	require.NotErrorIs(t, err, ocspkit.ErrRevoked)
}

func TestChecker_Freshness(t *testing.T) {
	now := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	cases := []struct {
		name string
		resp *ocspkit.Response
		ok   bool
	}{
		{"thisUpdate within skew", &ocspkit.Response{Status: ocspkit.StatusGood, ThisUpdate: now.Add(10 * time.Minute)}, true},
		{"thisUpdate in future", &ocspkit.Response{Status: ocspkit.StatusGood, ThisUpdate: now.Add(16 * time.Minute)}, false},
		{"nextUpdate within skew", &ocspkit.Response{Status: ocspkit.StatusGood, ThisUpdate: now.Add(-time.Hour), NextUpdate: now.Add(-10 * time.Minute)}, true},
		{"nextUpdate passed", &ocspkit.Response{Status: ocspkit.StatusGood, ThisUpdate: now.Add(-time.Hour), NextUpdate: now.Add(-16 * time.Minute)}, false},
		{"no nextUpdate", &ocspkit.Response{Status: ocspkit.StatusGood, ThisUpdate: now.Add(-time.Hour)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ocspkit.NewChecker(&fakeResponder{resp: tc.resp}, ocspkit.WithClock(clock))
			_, err := c.Check(context.Background(), &x509.Certificate{}, &x509.Certificate{}, time.Second)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ocspkit.ErrCheckFailed)
			}
		})
	}
}

func TestChecker_StaleRevokedIsCheckFailure(t *testing.T) {
	now := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)
	resp := &ocspkit.Response{Status: ocspkit.StatusRevoked, ThisUpdate: now.Add(time.Hour)}
	c := ocspkit.NewChecker(&fakeResponder{resp: resp}, ocspkit.WithClock(clockwork.NewFakeClockAt(now)))
	_, err := c.Check(context.Background(), &x509.Certificate{}, &x509.Certificate{}, time.Second)
	require.ErrorIs(t, err, ocspkit.ErrCheckFailed)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "good", ocspkit.StatusGood.String())
	assert.Equal(t, "revoked", ocspkit.StatusRevoked.String())
	assert.Equal(t, "unknown", ocspkit.StatusUnknown.String())
}
