package outputters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
)

// TrajectoryGeoJSON emits one FeatureCollection per step with a MultiPoint
// feature per realization, uncertain first. When Dir is set each collection
// is also written to geojson_NNNNNN.geojson.
type TrajectoryGeoJSON struct {
	Base

	Dir string

	written []string
}

// NewTrajectoryGeoJSON builds the outputter; dir may be empty.
func NewTrajectoryGeoJSON(dir string) *TrajectoryGeoJSON {
	return &TrajectoryGeoJSON{Base: newBase("TrajectoryGeoJSON"), Dir: dir}
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         int            `json:"id"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry is a GeoJSON MultiPoint.
type Geometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// TrajectoryRecord is the per-step result.
type TrajectoryRecord struct {
	StepNum        int               `json:"step_num"`
	TimeStamp      time.Time         `json:"time_stamp"`
	OutputFilename string            `json:"output_filename,omitempty"`
	Features       FeatureCollection `json:"feature_collection"`
}

func (o *TrajectoryGeoJSON) PrepareForModelRun(info RunInfo) error {
	if err := o.Base.PrepareForModelRun(info); err != nil {
		return err
	}
	if o.Dir == "" {
		return nil
	}
	return os.MkdirAll(o.Dir, 0o755)
}

func (o *TrajectoryGeoJSON) WriteOutput(step int, isLast bool) (any, error) {
	if !o.ShouldWrite(step, isLast) {
		return nil, nil
	}
	containers, err := o.Containers(step)
	if err != nil {
		return nil, fmt.Errorf("trajectory output step %d: %w", step, err)
	}

	fc := FeatureCollection{Type: "FeatureCollection"}
	for _, sc := range containers {
		scType := "forecast"
		if sc.Uncertain {
			scType = "uncertain"
		}
		f := Feature{
			Type:       "Feature",
			Properties: map[string]any{"sc_type": scType},
			Geometry:   Geometry{Type: "MultiPoint", Coordinates: coordinates(sc)},
		}
		if sc.Uncertain {
			fc.Features = append([]Feature{f}, fc.Features...)
		} else {
			fc.Features = append(fc.Features, f)
		}
	}
	for i := range fc.Features {
		fc.Features[i].ID = i
	}

	rec := &TrajectoryRecord{StepNum: step, TimeStamp: o.StepTime(step), Features: fc}
	if o.Dir != "" {
		name := filepath.Join(o.Dir, fmt.Sprintf("geojson_%06d.geojson", step))
		data, err := json.Marshal(fc)
		if err != nil {
			return nil, fmt.Errorf("trajectory output step %d: encode: %w", step, err)
		}
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return nil, fmt.Errorf("trajectory output step %d: %w", step, err)
		}
		o.written = append(o.written, name)
		rec.OutputFilename = name
	}
	return rec, nil
}

// Rewind removes the files written by the previous run.
func (o *TrajectoryGeoJSON) Rewind() error {
	var errs []error
	for _, name := range o.written {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	o.written = nil
	errs = append(errs, o.Base.Rewind())
	return errors.Join(errs...)
}

func coordinates(sc *elements.ContainerSnapshot) [][2]float64 {
	pos := sc.Array(elements.ArrayPositions)
	out := make([][2]float64, 0, sc.NumReleased)
	for i := range sc.NumReleased {
		row := pos.Row(i)
		out = append(out, [2]float64{row[0], row[1]})
	}
	return out
}
