package eventpipe

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coverctl/cover"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{line: "garage open", want: Command{Cover: "garage", Request: cover.RequestOpen()}},
		{line: "garage UP", want: Command{Cover: "garage", Request: cover.RequestOpen()}},
		{line: "garage close", want: Command{Cover: "garage", Request: cover.RequestClose()}},
		{line: "shutter stop", want: Command{Cover: "shutter", Request: cover.RequestStop()}},
		{line: "shutter prog", want: Command{Cover: "shutter", Request: cover.RequestProgram()}},
		{line: "shutter 40", want: Command{Cover: "shutter", Request: cover.RequestPosition(0.4)}},
		{line: "shutter 25%", want: Command{Cover: "shutter", Request: cover.RequestPosition(0.25)}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{"garage", "garage open now", "garage sideways"} {
		_, err := parseLine(line)
		assert.Error(t, err, line)
	}
	_, err := parseLine("garage 120")
	assert.ErrorIs(t, err, cover.ErrInvalidPosition)
}

func TestServe(t *testing.T) {
	var got []Command
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ep := &EventPipe{
		handler: func(c Command) { got = append(got, c) },
		logger:  zap.NewNop().Sugar(),
		ctx:     ctx,
		cancel:  cancel,
	}

	ep.serve(strings.NewReader("# morning\ngarage open\n\nbogus\nshutter 50\n"))
	assert.Equal(t, []Command{
		{Cover: "garage", Request: cover.RequestOpen()},
		{Cover: "shutter", Request: cover.RequestPosition(0.5)},
	}, got)
}

func TestNew_Disabled(t *testing.T) {
	ep, err := New(Config{}, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, ep)
}

func TestNew_CreatesPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands")
	ep, err := New(Config{Path: path}, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.FileExists(t, path)
	require.NoError(t, ep.Close())
	assert.NoFileExists(t, path)
}
