package outputters

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// WeatheringOutput reports each realization's mass balance per step as a
// protobuf Struct. When Path is set the records are also appended to it as
// JSON lines.
type WeatheringOutput struct {
	Base

	Path string

	records []*structpb.Struct
	file    *os.File
}

// NewWeatheringOutput builds the outputter; path may be empty.
func NewWeatheringOutput(path string) *WeatheringOutput {
	return &WeatheringOutput{Base: newBase("WeatheringOutput"), Path: path}
}

func (o *WeatheringOutput) PrepareForModelRun(info RunInfo) error {
	if err := o.Base.PrepareForModelRun(info); err != nil {
		return err
	}
	o.records = nil
	if o.Path == "" {
		return nil
	}
	f, err := os.Create(o.Path)
	if err != nil {
		return fmt.Errorf("weathering output: %w", err)
	}
	o.file = f
	return nil
}

func (o *WeatheringOutput) WriteOutput(step int, isLast bool) (any, error) {
	if !o.ShouldWrite(step, isLast) {
		return nil, nil
	}
	containers, err := o.Containers(step)
	if err != nil {
		return nil, fmt.Errorf("weathering output step %d: %w", step, err)
	}

	fields := map[string]any{
		"step_num":   step,
		"time_stamp": o.StepTime(step).Format(time.RFC3339),
	}
	for _, sc := range containers {
		key := "certain"
		if sc.Uncertain {
			key = "uncertain"
		}
		balance := make(map[string]any, len(sc.MassBalance))
		for _, k := range slices.Sorted(maps.Keys(sc.MassBalance)) {
			balance[k] = sc.MassBalance[k]
		}
		balance["num_elements"] = sc.NumReleased
		fields[key] = balance
	}
	rec, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("weathering output step %d: %w", step, err)
	}
	o.records = append(o.records, rec)

	if o.file != nil {
		line, err := protojson.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("weathering output step %d: encode: %w", step, err)
		}
		if _, err := o.file.Write(append(line, '\n')); err != nil {
			return nil, fmt.Errorf("weathering output step %d: %w", step, err)
		}
	}
	return rec, nil
}

// Records returns every record written this run.
func (o *WeatheringOutput) Records() []*structpb.Struct { return slices.Clone(o.records) }

func (o *WeatheringOutput) PostModelRun() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

func (o *WeatheringOutput) Rewind() error {
	o.records = nil
	if err := o.PostModelRun(); err != nil {
		return err
	}
	return o.Base.Rewind()
}
