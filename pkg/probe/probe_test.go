package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeRun(stdout, stderr string, err error) runFunc {
	return func(context.Context, string, ...string) ([]byte, []byte, error) {
		return []byte(stdout), []byte(stderr), err
	}
}

func TestParseBitrate(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "128k", want: 128000},
		{in: "128k\n", want: 128000},
		{in: " 320K ", want: 320000},
		{in: "1.41M", want: 1410000},
		{in: "44100", want: 44100},
		{in: "", wantErr: true},
		{in: "k", wantErr: true},
		{in: "fast", wantErr: true},
		{in: "0k", wantErr: true},
		{in: "-8k", wantErr: true},
		{in: "0.0001", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "-Inf", wantErr: true},
		{in: "1e30k", wantErr: true},
		{in: "2147483648", wantErr: true},
		{in: "2147483647", want: 2147483647},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBitrate(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProbe_Success(t *testing.T) {
	var gotName string
	var gotArgs []string

	p := New("sox", 64000, time.Second, testLogger())
	p.run = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("128k\n"), nil, nil
	}

	res := p.Probe(context.Background(), "song.mp3")
	require.NoError(t, res.Err)
	assert.False(t, res.Fallback())
	assert.Equal(t, 128000, res.BitrateBps)
	assert.Equal(t, "sox", gotName)
	assert.Equal(t, []string{"--i", "-B", "song.mp3"}, gotArgs)
}

func TestProbe_Fallback(t *testing.T) {
	cases := map[string]runFunc{
		"stderr output": fakeRun("", "sox FAIL formats: can't open input file `foo.mp3'", errors.New("exit status 1")),
		"stderr only":   fakeRun("128k", "warning", nil),
		"start failure": fakeRun("", "", errors.New("executable file not found in $PATH")),
		"unparsable":    fakeRun("unknown", "", nil),
		"empty output":  fakeRun("", "", nil),
	}

	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			p := New("sox", 64000, time.Second, testLogger())
			p.run = run

			res := p.Probe(context.Background(), "foo.mp3")
			assert.Error(t, res.Err)
			assert.True(t, res.Fallback())
			assert.Equal(t, 64000, res.BitrateBps)
		})
	}
}

func TestProbe_MissingCommand(t *testing.T) {
	p := New("radiogo-no-such-probe-command", 0, time.Second, testLogger())

	res := p.Probe(context.Background(), "foo.mp3")
	assert.True(t, res.Fallback())
	assert.Equal(t, DefaultFallback, res.BitrateBps)
}

func TestProbe_Timeout(t *testing.T) {
	p := New("sox", 64000, 50*time.Millisecond, testLogger())
	p.run = func(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	start := time.Now()
	res := p.Probe(context.Background(), "foo.mp3")
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, 64000, res.BitrateBps)
}
