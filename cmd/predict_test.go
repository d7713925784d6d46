package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/magiconair/properties/assert"
)

func TestReadPoints(t *testing.T) {
	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, "points.yaml")
	)
	data := `
- {X: 0.25, Y: 0.5, T: 0.1}
- {X: 0.75, Y: 0.5, T: 0.4}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		panic(err)
	}
	pts, err := readPoints(path)
	if err != nil {
		panic(err)
	}
	assert.Equal(t, len(pts), 2)
	assert.Equal(t, pts[0].X, 0.25)
	assert.Equal(t, pts[0].Y, 0.5)
	assert.Equal(t, pts[1].T, 0.4)

	if _, err = readPoints(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing points file")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err = os.WriteFile(empty, []byte("[]\n"), 0644); err != nil {
		panic(err)
	}
	if _, err = readPoints(empty); err == nil {
		t.Errorf("expected an error for an empty points file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err = os.WriteFile(bad, []byte("- {X: oops}\n"), 0644); err != nil {
		panic(err)
	}
	if _, err = readPoints(bad); err == nil {
		t.Errorf("expected an error for a malformed points file")
	}
}
