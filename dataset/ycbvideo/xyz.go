package ycbvideo

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// LoadXYZ parses an ASCII point file with one "x y z" triple per line.
// Blank lines and lines starting with '#' are skipped.
func LoadXYZ(path string) ([]r3.Vec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open xyz file")
	}
	defer f.Close()

	var pts []r3.Vec
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, errors.Errorf("%s:%d: want 3 coordinates, got %d", path, line, len(fields))
		}

		var v [3]float64
		for i := 0; i < 3; i++ {
			v[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d: bad coordinate %q", path, line, fields[i])
			}
		}
		pts = append(pts, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read xyz file")
	}
	if len(pts) == 0 {
		return nil, errors.Errorf("%s contains no points", path)
	}
	return pts, nil
}
