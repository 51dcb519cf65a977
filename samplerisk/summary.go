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

package samplerisk

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/table"
	"gonum.org/v1/gonum/stat"
)

// Prosecutor is the risk from an attacker who knows that the target is in the
// sample.
type Prosecutor struct {
	threshold, recordsAtRisk, highestRisk, successRate float64
}

// Threshold returns the risk threshold the summary was computed for.
func (p Prosecutor) Threshold() float64 { return p.threshold }

// RecordsAtRisk returns the fraction of records whose risk exceeds the
// threshold.
func (p Prosecutor) RecordsAtRisk() float64 { return p.recordsAtRisk }

// HighestRisk returns the highest risk of any record.
func (p Prosecutor) HighestRisk() float64 { return p.highestRisk }

// SuccessRate returns the expected fraction of records re-identified.
func (p Prosecutor) SuccessRate() float64 { return p.successRate }

// Journalist is the risk from an attacker who knows that the target is in the
// population, with class sizes taken from the population.
type Journalist struct {
	threshold, recordsAtRisk, highestRisk, successRate float64
}

// Threshold returns the risk threshold the summary was computed for.
func (j Journalist) Threshold() float64 { return j.threshold }

// RecordsAtRisk returns the fraction of sample records whose population risk
// exceeds the threshold.
func (j Journalist) RecordsAtRisk() float64 { return j.recordsAtRisk }

// HighestRisk returns the highest population risk of any sample record.
func (j Journalist) HighestRisk() float64 { return j.highestRisk }

// SuccessRate returns the expected fraction of records re-identified.
func (j Journalist) SuccessRate() float64 { return j.successRate }

// Marketer is the risk from an attacker who re-identifies as many records as
// possible.
type Marketer struct {
	successRate float64
}

// SuccessRate returns the expected fraction of records re-identified.
func (m Marketer) SuccessRate() float64 { return m.successRate }

// Summary holds the three attacker models for one threshold.
type Summary struct {
	Prosecutor Prosecutor
	Journalist Journalist
	Marketer   Marketer
}

// Summarize computes the prosecutor, journalist and marketer risks of the
// classes in sample. population groups the population superset by the same
// columns; when it is nil every class is assumed to be its own population
// class. Each of the three scans over the classes gets a third of p.
func Summarize(sample, population *eqclass.Grouping, threshold float64, p progress.Phase) (Summary, error) {
	if sample == nil {
		return Summary{}, fmt.Errorf("samplerisk.Summarize: %w: nil sample grouping", checks.ErrInvalidArgument)
	}
	if err := checks.CheckThreshold(threshold); err != nil {
		return Summary{}, fmt.Errorf("samplerisk.Summarize: %w", err)
	}
	groups := sample.Groups()
	sum := Summary{
		Prosecutor: Prosecutor{threshold: threshold},
		Journalist: Journalist{threshold: threshold},
	}
	n := sample.NumRecords()
	if n == 0 {
		p.Done()
		return sum, nil
	}

	// Population class sizes, aligned with groups.
	scan := p.Sub(0, 1.0/3)
	popSizes := make([]float64, len(groups))
	sizes := make([]float64, len(groups))
	var missing int
	for i, g := range groups {
		if err := scan.Check(); err != nil {
			return Summary{}, err
		}
		sizes[i] = float64(g.Size)
		popSizes[i] = sizes[i]
		if population != nil {
			if ps := population.SizeOf(g.Key); ps >= g.Size {
				popSizes[i] = float64(ps)
			} else {
				missing++
			}
		}
		scan.Report(i+1, len(groups))
	}
	if missing > 0 {
		log.Warningf("samplerisk: %d sample classes are smaller in the population than in the sample, using sample sizes", missing)
	}

	// Prosecutor.
	scan = p.Sub(1.0/3, 2.0/3)
	atRisk, smallest := 0.0, math.Inf(1)
	for i := range groups {
		if err := scan.Check(); err != nil {
			return Summary{}, err
		}
		if 1/sizes[i] > threshold {
			atRisk += sizes[i]
		}
		smallest = math.Min(smallest, sizes[i])
		scan.Report(i+1, len(groups))
	}
	sum.Prosecutor.recordsAtRisk = atRisk / float64(n)
	sum.Prosecutor.highestRisk = 1 / smallest
	sum.Prosecutor.successRate = float64(len(groups)) / float64(n)

	// Journalist and marketer.
	scan = p.Sub(2.0/3, 1)
	inverse := make([]float64, len(groups))
	atRisk, smallest = 0, math.Inf(1)
	var popTotal float64
	for i := range groups {
		if err := scan.Check(); err != nil {
			return Summary{}, err
		}
		inverse[i] = 1 / popSizes[i]
		if inverse[i] > threshold {
			atRisk += sizes[i]
		}
		smallest = math.Min(smallest, popSizes[i])
		popTotal += popSizes[i]
		scan.Report(i+1, len(groups))
	}
	// Mean of 1/population size over sample records.
	marketer := stat.Mean(inverse, sizes)
	sum.Marketer.successRate = marketer
	sum.Journalist.recordsAtRisk = atRisk / float64(n)
	sum.Journalist.highestRisk = 1 / smallest
	sum.Journalist.successRate = math.Max(float64(len(groups))/popTotal, marketer)
	p.Done()
	return sum, nil
}

// SummarizeTable groups t and, if it has one, its superset by qis and
// summarizes the result. Grouping takes the first 60% of p.
func SummarizeTable(t table.Table, qis table.QuasiIdentifiers, threshold float64, p progress.Phase) (Summary, error) {
	if err := checks.CheckThreshold(threshold); err != nil {
		return Summary{}, fmt.Errorf("samplerisk.SummarizeTable: %w", err)
	}
	sample, population, err := GroupWithSuperset(t, qis, p.Sub(0, 0.6))
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sample, population, threshold, p.Sub(0.6, 1))
}

// GroupWithSuperset groups the non-outlier rows of t by qis, and those of
// t.Superset() if it is not nil. population is nil without a superset.
func GroupWithSuperset(t table.Table, qis table.QuasiIdentifiers, p progress.Phase) (sample, population *eqclass.Grouping, err error) {
	cols, err := qis.Resolve(t)
	if err != nil {
		return nil, nil, err
	}
	super := t.Superset()
	end := 1.0
	if super != nil {
		end = 0.5
	}
	sample, err = eqclass.GroupRows(t, cols, p.Sub(0, end), nil)
	if err != nil {
		return nil, nil, err
	}
	if super == nil {
		return sample, nil, nil
	}
	superCols, err := qis.Resolve(super)
	if err != nil {
		return nil, nil, fmt.Errorf("superset: %w", err)
	}
	population, err = eqclass.GroupRows(super, superCols, p.Sub(end, 1), nil)
	if err != nil {
		return nil, nil, err
	}
	return sample, population, nil
}
