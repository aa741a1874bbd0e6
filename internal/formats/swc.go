package formats

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// SWCHeader is the comment line written above SWC point rows.
const SWCHeader = "# n type x y z radius parent"

// swcFields is the number of columns in an SWC row.
const swcFields = 7

// Point is one sample of an SWC neuron morphology. Parent is -1 for a root.
type Point struct {
	N      int
	Type   int
	X      float64
	Y      float64
	Z      float64
	Radius float64
	Parent int
}

// DecodeSWC parses whitespace-separated SWC rows. Lines starting with '#'
// and blank lines are skipped.
func DecodeSWC(data []byte) ([]Point, error) {
	var points []Point

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0

	for sc.Scan() {
		lineNo++

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p, err := parseSWCLine(line)
		if err != nil {
			return nil, fmt.Errorf("formats: swc line %d: %w", lineNo, err)
		}

		points = append(points, p)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("formats: reading swc: %w", err)
	}

	return points, nil
}

func parseSWCLine(line string) (Point, error) {
	f := strings.Fields(line)
	if len(f) != swcFields {
		return Point{}, fmt.Errorf("want %d fields, got %d", swcFields, len(f))
	}

	var (
		p    Point
		errs []error
	)

	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)

		return v
	}

	atof := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)

		return v
	}

	p.N = atoi(f[0])
	p.Type = atoi(f[1])
	p.X = atof(f[2])
	p.Y = atof(f[3])
	p.Z = atof(f[4])
	p.Radius = atof(f[5])
	p.Parent = atoi(f[6])

	for _, err := range errs {
		if err != nil {
			return Point{}, err
		}
	}

	return p, nil
}

// EncodeSWC writes the header line followed by one space-separated row per point.
func EncodeSWC(points []Point) []byte {
	var b strings.Builder

	b.WriteString(SWCHeader)
	b.WriteByte('\n')

	for _, p := range points {
		fmt.Fprintf(&b, "%d %d %s %s %s %s %d\n",
			p.N, p.Type, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z), formatFloat(p.Radius), p.Parent)
	}

	return []byte(b.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
