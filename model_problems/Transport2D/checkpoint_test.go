package Transport2D

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckpointRoundTrip(t *testing.T) {
	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, "run.ckpt")
		ip   = smallParams()
	)
	ip.MaxIterations = 5
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	_, err = c.Train(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, c.WriteCheckpoint(path))

	ck, err := ReadCheckpoint(path)
	assert.NoError(t, err)
	assert.Equal(t, c.RunID, ck.Header.RunID)
	assert.Equal(t, 5, ck.Header.Iteration)
	assert.Equal(t, c.Net.Dims, ck.Header.Network.Dims)
	assert.Equal(t, c.params, ck.Weights)

	opt := c.Opt.Snapshot()
	assert.Equal(t, opt.Kind, ck.OptState.Kind)
	assert.Equal(t, opt.Steps, ck.OptState.Steps)
	assert.Equal(t, opt.Moments, ck.OptState.Moments)

	mon := c.Mon.Snapshot()
	assert.Equal(t, mon.Ring, ck.Monitor.Ring)
	assert.Equal(t, mon.Best, ck.Monitor.Best)
	assert.Equal(t, mon.Seen, ck.Monitor.Seen)

	assert.Equal(t, c.streamMark, ck.SamplerState)
	assert.NotNil(t, ck.Header.Params)
	assert.Equal(t, ip.Title, ck.Header.Params.Title)
}

func TestCheckpointCorruption(t *testing.T) {
	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, "run.ckpt")
		ip   = smallParams()
	)
	ip.MaxIterations = 3
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	_, err = c.Train(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, c.WriteCheckpoint(path))

	{ // A flipped byte breaks the digest
		data, rerr := os.ReadFile(path)
		assert.NoError(t, rerr)
		data[len(data)/2] ^= 0x40
		bad := filepath.Join(dir, "flipped.ckpt")
		assert.NoError(t, os.WriteFile(bad, data, 0644))
		_, rerr = ReadCheckpoint(bad)
		assert.Error(t, rerr)
		var ce *CheckpointError
		assert.True(t, errors.As(rerr, &ce))
		assert.Contains(t, rerr.Error(), "sha256 mismatch")
	}
	{ // A truncated bundle is refused
		data, rerr := os.ReadFile(path)
		assert.NoError(t, rerr)
		bad := filepath.Join(dir, "short.ckpt")
		assert.NoError(t, os.WriteFile(bad, data[:len(data)-40], 0644))
		_, rerr = ReadCheckpoint(bad)
		assert.Error(t, rerr)
	}
	{ // Arbitrary bytes are not a bundle
		bad := filepath.Join(dir, "noise.ckpt")
		noise := make([]byte, 256)
		for i := range noise {
			noise[i] = byte(i * 7)
		}
		assert.NoError(t, os.WriteFile(bad, noise, 0644))
		_, rerr := ReadCheckpoint(bad)
		assert.Error(t, rerr)
	}
	{ // A missing file reports the path
		_, rerr := ReadCheckpoint(filepath.Join(dir, "absent.ckpt"))
		assert.Error(t, rerr)
		var ce *CheckpointError
		assert.True(t, errors.As(rerr, &ce))
		assert.Equal(t, "read", ce.Op)
	}
	{ // An unwritable target reports the write
		werr := c.WriteCheckpoint(filepath.Join(dir, "no", "such", "dir.ckpt"))
		assert.Error(t, werr)
		var ce *CheckpointError
		assert.True(t, errors.As(werr, &ce))
		assert.Equal(t, "write", ce.Op)
	}
}
