package arm

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// LoadPath reads motion targets from filename.
//
// A .csv file holds one target per row: six numbers, optionally preceded by a "joint" or
// "cartesian" column (joint when absent). Any other file is parsed as a JSON list of
// targets as written by MotionType.MarshalJSON.
func LoadPath(filename string) ([]MotionType, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening path file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var path []MotionType
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		path, err = readPathCSV(f)
	} else {
		err = json.NewDecoder(f).Decode(&path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading path file %q", filename)
	}
	if len(path) == 0 {
		return nil, errors.Errorf("path file %q has no points", filename)
	}
	return path, nil
}

func readPathCSV(r io.Reader) ([]MotionType, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var path []MotionType
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return path, nil
		}
		if err != nil {
			return nil, err
		}
		kind := JointMotion
		switch strings.ToLower(strings.TrimSpace(record[0])) {
		case "joint":
			record = record[1:]
		case "cartesian":
			kind = CartesianMotion
			record = record[1:]
		}
		if len(record) != DOF {
			return nil, errors.Errorf("row %d has %d values, want %d", line, len(record), DOF)
		}
		var values [DOF]float64
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", line, i+1)
			}
			values[i] = v
		}
		if kind == JointMotion {
			path = append(path, Joint(values))
		} else {
			path = append(path, CartesianEuler(values))
		}
	}
}
