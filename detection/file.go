package detection

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mpicque/grid-sensor/pointset"
)

// Format is the on-disk encoding of the point records in a shape file.
type Format int

const (
	// FormatAscii writes one "x y z" text line per point.
	FormatAscii Format = 0
	// FormatBinary writes little-endian float32 triples.
	FormatBinary Format = 1
)

const shapeFileCommentChar = "#"

var shapeFileHeaderFields = []string{"VERSION", "CONFIG", "MAXLOD", "COUNTS", "DATA"}

type shapeHeader struct {
	config Config
	maxLOD int
	counts []int
	format Format
}

// WriteShape serializes the shape's configuration and every stored level to
// out. Levels are written coarsest first. The selection and the world
// buffer are derived state and are not written. An empty shape has nothing
// to persist and is an error.
func WriteShape(s *Shape, out io.Writer, format Format) error {
	if !s.HasPoints() {
		return errors.New("cannot serialize a shape with no scan result")
	}

	var err error
	if _, err = fmt.Fprintf(out, "VERSION 1\n"); err != nil {
		return err
	}
	cfg := s.Config()
	_, err = fmt.Fprintf(out, "CONFIG %t %t %f %d\n", cfg.Merge, cfg.Flatten, cfg.Projection, cfg.ScanLOD)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(out, "MAXLOD %d\n", s.MaxLOD()); err != nil {
		return err
	}
	counts := make([]string, 0, s.MaxLOD()+1)
	for lod := 0; lod <= s.MaxLOD(); lod++ {
		counts = append(counts, strconv.Itoa(s.Level(lod).Size()))
	}
	if _, err = fmt.Fprintf(out, "COUNTS %s\n", strings.Join(counts, " ")); err != nil {
		return err
	}
	switch format {
	case FormatAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
	case FormatBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
	default:
		return errors.Errorf("unsupported shape file format %d", format)
	}
	if err != nil {
		return err
	}
	return writeLevelData(s, out, format)
}

func writeLevelData(s *Shape, out io.Writer, format Format) error {
	var err error
	for lod := 0; lod <= s.MaxLOD(); lod++ {
		s.Level(lod).Iterate(func(_ int, p r3.Vector) bool {
			switch format {
			case FormatBinary:
				buf := make([]byte, 12)
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
				binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
				binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
				_, err = out.Write(buf)
			case FormatAscii:
				_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
			}
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func parseShapeHeaderLine(line string, index int, header *shapeHeader) error {
	var err error
	name := shapeFileHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Split(value, " ")
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != "1" {
			return errors.Errorf("unsupported shape file version %s", value)
		}
	case "CONFIG":
		if len(tokens) != 4 {
			return errors.Errorf("unexpected number of fields in CONFIG line")
		}
		if header.config.Merge, err = strconv.ParseBool(tokens[0]); err != nil {
			return errors.Errorf("invalid CONFIG merge field %s", tokens[0])
		}
		if header.config.Flatten, err = strconv.ParseBool(tokens[1]); err != nil {
			return errors.Errorf("invalid CONFIG flatten field %s", tokens[1])
		}
		if header.config.Projection, err = strconv.ParseFloat(tokens[2], 64); err != nil {
			return errors.Errorf("invalid CONFIG projection field %s", tokens[2])
		}
		if header.config.ScanLOD, err = strconv.Atoi(tokens[3]); err != nil {
			return errors.Errorf("invalid CONFIG scan LOD field %s", tokens[3])
		}
	case "MAXLOD":
		if header.maxLOD, err = strconv.Atoi(value); err != nil || header.maxLOD < 0 {
			return errors.Errorf("invalid MAXLOD field %s", value)
		}
	case "COUNTS":
		if len(tokens) != header.maxLOD+1 {
			return errors.Errorf("COUNTS line has %d fields, want %d", len(tokens), header.maxLOD+1)
		}
		header.counts = make([]int, len(tokens))
		for i, token := range tokens {
			if header.counts[i], err = strconv.Atoi(token); err != nil || header.counts[i] < 0 {
				return errors.Errorf("invalid COUNTS field %s", token)
			}
		}
	case "DATA":
		switch value {
		case "ascii":
			header.format = FormatAscii
		case "binary":
			header.format = FormatBinary
		default:
			return errors.Errorf("unsupported shape file data format %s", value)
		}
	}

	return nil
}

// ReadShape reconstructs a shape from the serialized form produced by
// WriteShape. The stored configuration is validated and the levels are
// installed exactly as a fresh scan result would be.
func ReadShape(inRaw io.Reader, logger golog.Logger) (*Shape, error) {
	header := shapeHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(shapeFileHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, shapeFileCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parseShapeHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}

	s, err := NewShape(header.config, logger)
	if err != nil {
		return nil, err
	}

	var levels []*pointset.Set
	switch header.format {
	case FormatAscii:
		levels, err = readLevelsAscii(in, header)
	case FormatBinary:
		levels, err = readLevelsBinary(in, header)
	}
	if err != nil {
		return nil, err
	}
	if err := s.SetScanResult(ScanResult{MaxLOD: header.maxLOD, Levels: levels}); err != nil {
		return nil, err
	}
	return s, nil
}

func readLevelsAscii(in *bufio.Reader, header shapeHeader) ([]*pointset.Set, error) {
	levels := make([]*pointset.Set, header.maxLOD+1)
	for lod := 0; lod <= header.maxLOD; lod++ {
		level := pointset.NewWithCapacity(header.counts[lod])
		for i := 0; i < header.counts[lod]; i++ {
			line, err := in.ReadString('\n')
			if err != nil {
				return nil, errors.Wrapf(err, "error reading level %d point %d", lod, i)
			}
			tokens := strings.Split(strings.TrimSpace(line), " ")
			if len(tokens) != 3 {
				return nil, errors.Errorf("level %d point %d has %d fields, want 3", lod, i, len(tokens))
			}
			var p r3.Vector
			if p.X, err = strconv.ParseFloat(tokens[0], 64); err != nil {
				return nil, errors.Errorf("invalid level %d point %d field %s", lod, i, tokens[0])
			}
			if p.Y, err = strconv.ParseFloat(tokens[1], 64); err != nil {
				return nil, errors.Errorf("invalid level %d point %d field %s", lod, i, tokens[1])
			}
			if p.Z, err = strconv.ParseFloat(tokens[2], 64); err != nil {
				return nil, errors.Errorf("invalid level %d point %d field %s", lod, i, tokens[2])
			}
			level.Add(p)
		}
		levels[lod] = level
	}
	return levels, nil
}

func readLevelsBinary(in *bufio.Reader, header shapeHeader) ([]*pointset.Set, error) {
	levels := make([]*pointset.Set, header.maxLOD+1)
	buf := make([]byte, 12)
	for lod := 0; lod <= header.maxLOD; lod++ {
		level := pointset.NewWithCapacity(header.counts[lod])
		for i := 0; i < header.counts[lod]; i++ {
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "error reading level %d point %d", lod, i)
			}
			level.Add(r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
			})
		}
		levels[lod] = level
	}
	return levels, nil
}

// WriteShapeToFile writes the shape to the named file.
func WriteShapeToFile(s *Shape, fn string, format Format) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WriteShape(s, f, format)
}

// NewShapeFromFile returns a shape read in from the named file.
func NewShapeFromFile(fn string, logger golog.Logger) (_ *Shape, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ReadShape(f, logger)
}
