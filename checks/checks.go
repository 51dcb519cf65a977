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

// Package checks contains argument and precondition checks for risk
// estimation functions.
package checks

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

var (
	// ErrInvalidArgument is wrapped by every error reporting a malformed
	// argument: unknown attribute names, out-of-range thresholds, empty
	// required inputs.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPreconditionViolated is wrapped by errors reporting that well-formed
	// arguments do not admit the requested computation, e.g. population
	// uniqueness for a sample without sample uniques.
	ErrPreconditionViolated = errors.New("precondition violated")
)

const (
	thresholdName        = "Threshold"
	samplingFractionName = "SamplingFraction"
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionViolated, fmt.Sprintf(format, args...))
}

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckThreshold returns an error if a risk threshold is NaN or outside [0, 1].
func CheckThreshold(threshold float64, name ...string) error {
	thName, err := verifyName(thresholdName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return invalidf("%s is %f, must be within [0, 1]", thName, threshold)
	}
	if threshold == 0 {
		log.Warningf("%s is 0: every record will be reported at risk", thName)
	}
	return nil
}

// CheckSamplingFraction returns an error if f is NaN or outside (0, 1].
func CheckSamplingFraction(f float64, name ...string) error {
	fName, err := verifyName(samplingFractionName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(f) || f <= 0 || f > 1 {
		return invalidf("%s is %f, must be within (0, 1]", fName, f)
	}
	return nil
}

// CheckPopulationSize returns an error if the population is smaller than the
// sample drawn from it.
func CheckPopulationSize(populationSize, sampleSize int64) error {
	if sampleSize <= 0 {
		return preconditionf("SampleSize is %d, must be strictly positive", sampleSize)
	}
	if populationSize < sampleSize {
		return invalidf("PopulationSize (%d) must be at least SampleSize (%d)", populationSize, sampleSize)
	}
	return nil
}

// CheckSampleSize returns an error if the sample contains no records.
func CheckSampleSize(sampleSize int64) error {
	if sampleSize <= 0 {
		return preconditionf("SampleSize is %d, must be strictly positive", sampleSize)
	}
	return nil
}

// CheckAccuracy returns an error if a solver accuracy is not strictly positive
// and finite.
func CheckAccuracy(accuracy float64) error {
	if accuracy <= 0 || math.IsInf(accuracy, 0) || math.IsNaN(accuracy) {
		return invalidf("Accuracy is %e, must be strictly positive and finite", accuracy)
	}
	return nil
}

// CheckMaxIterations returns an error if maxIterations is nonpositive.
func CheckMaxIterations(maxIterations int) error {
	if maxIterations <= 0 {
		return invalidf("MaxIterations is %d, must be strictly positive", maxIterations)
	}
	return nil
}

// CheckRetries returns an error if retries is nonpositive.
func CheckRetries(retries int) error {
	if retries <= 0 {
		return invalidf("Retries is %d, must be strictly positive", retries)
	}
	return nil
}

// CheckQuasiIdentifiers returns an error if names is empty, contains an empty
// name or contains the same name twice.
func CheckQuasiIdentifiers(names []string) error {
	if len(names) == 0 {
		return invalidf("the set of quasi-identifiers must not be empty")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return invalidf("quasi-identifier names must not be empty")
		}
		if seen[n] {
			return invalidf("quasi-identifier %q is listed more than once", n)
		}
		seen[n] = true
	}
	return nil
}

// CheckWildcard returns an error if the suppressed-value token is empty.
func CheckWildcard(wildcard string) error {
	if wildcard == "" {
		return invalidf("Wildcard must not be empty")
	}
	return nil
}

// CheckSampleUniques returns an error if the sample contains no equivalence
// class of size one. Population uniqueness cannot be inferred from such a
// sample.
func CheckSampleUniques(numClassesOfSize1 int) error {
	if numClassesOfSize1 <= 0 {
		return preconditionf("the sample contains no sample uniques, population uniqueness is undefined")
	}
	return nil
}
