//
// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package popmodel estimates the number of population uniques from a sample
// histogram with the Pitman, Zayatz and SNB models, and selects among them
// with the decision rule of Dankar et al.
package popmodel

import (
	"fmt"
	"math"

	"github.com/google/reidrisk/checks"
)

// PopulationModel relates a sample to the population it was drawn from.
type PopulationModel struct {
	sampleSize       int64
	samplingFraction float64
}

// NewPopulationModel returns the model of a sample of sampleSize records drawn
// with the given sampling fraction, which must be in (0, 1].
func NewPopulationModel(sampleSize int64, samplingFraction float64) (PopulationModel, error) {
	if err := checks.CheckSampleSize(sampleSize); err != nil {
		return PopulationModel{}, fmt.Errorf("popmodel.NewPopulationModel: %w", err)
	}
	if err := checks.CheckSamplingFraction(samplingFraction); err != nil {
		return PopulationModel{}, fmt.Errorf("popmodel.NewPopulationModel: %w", err)
	}
	if pop := math.Round(float64(sampleSize) / samplingFraction); pop >= math.MaxInt64 {
		return PopulationModel{}, fmt.Errorf("popmodel.NewPopulationModel: %w: sampling fraction %g implies a population of %g records, more than %d", checks.ErrInvalidArgument, samplingFraction, pop, int64(math.MaxInt64))
	}
	return PopulationModel{sampleSize: sampleSize, samplingFraction: samplingFraction}, nil
}

// FromPopulationSize returns the model of a sample of sampleSize records drawn
// from a population of populationSize records.
func FromPopulationSize(sampleSize, populationSize int64) (PopulationModel, error) {
	if err := checks.CheckPopulationSize(populationSize, sampleSize); err != nil {
		return PopulationModel{}, fmt.Errorf("popmodel.FromPopulationSize: %w", err)
	}
	return PopulationModel{sampleSize: sampleSize, samplingFraction: float64(sampleSize) / float64(populationSize)}, nil
}

// FromRegion returns the model of a sample of sampleSize records drawn from the
// population of r.
func FromRegion(sampleSize int64, r Region) (PopulationModel, error) {
	pop, ok := regionPopulation[r]
	if !ok {
		return PopulationModel{}, fmt.Errorf("popmodel.FromRegion: %w: unknown region %q", checks.ErrInvalidArgument, r)
	}
	if pop < sampleSize {
		// The sample is the whole population.
		pop = sampleSize
	}
	return FromPopulationSize(sampleSize, pop)
}

// SampleSize returns the number of records in the sample.
func (pm PopulationModel) SampleSize() int64 { return pm.sampleSize }

// SamplingFraction returns sampleSize / populationSize.
func (pm PopulationModel) SamplingFraction() float64 { return pm.samplingFraction }

// PopulationSize returns round(sampleSize / samplingFraction).
func (pm PopulationModel) PopulationSize() int64 {
	if pm.samplingFraction == 0 {
		return 0
	}
	return int64(math.Round(float64(pm.sampleSize) / pm.samplingFraction))
}

func (pm PopulationModel) String() string {
	return fmt.Sprintf("PopulationModel{n=%d, f=%g, N=%d}", pm.sampleSize, pm.samplingFraction, pm.PopulationSize())
}

// Region names a population with a known approximate size.
type Region string

// Regions with approximate population sizes.
const (
	USA       Region = "USA"
	UK        Region = "UK"
	France    Region = "France"
	Germany   Region = "Germany"
	Canada    Region = "Canada"
	Italy     Region = "Italy"
	Spain     Region = "Spain"
	Australia Region = "Australia"
	Japan     Region = "Japan"
	India     Region = "India"
	China     Region = "China"
	Brazil    Region = "Brazil"
	Europe    Region = "Europe"
	World     Region = "World"
)

var regionPopulation = map[Region]int64{
	USA:       318_900_000,
	UK:        63_181_775,
	France:    65_800_000,
	Germany:   80_523_746,
	Canada:    35_160_000,
	Italy:     60_780_000,
	Spain:     46_510_000,
	Australia: 23_700_000,
	Japan:     127_100_000,
	India:     1_267_000_000,
	China:     1_364_000_000,
	Brazil:    202_600_000,
	Europe:    742_500_000,
	World:     7_260_000_000,
}

// PopulationOf returns the approximate population of r.
func PopulationOf(r Region) (int64, bool) {
	pop, ok := regionPopulation[r]
	return pop, ok
}
