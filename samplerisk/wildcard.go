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

	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/table"
)

// DefaultWildcard is the value that suppressed cells usually hold.
const DefaultWildcard = "*"

// WildcardSummary is the risk of a sample in which a suppressed value matches
// any value. A record's risk is the inverse of the number of records whose
// projection matches its own.
type WildcardSummary struct {
	threshold, highestRisk, averageRisk, recordsAtRisk float64
}

// Threshold returns the risk threshold the summary was computed for.
func (w WildcardSummary) Threshold() float64 { return w.threshold }

// HighestRisk returns the highest risk of any record.
func (w WildcardSummary) HighestRisk() float64 { return w.highestRisk }

// AverageRisk returns the mean risk over records.
func (w WildcardSummary) AverageRisk() float64 { return w.averageRisk }

// RecordsAtRisk returns the fraction of records whose risk exceeds the
// threshold.
func (w WildcardSummary) RecordsAtRisk() float64 { return w.recordsAtRisk }

// WildcardRisk computes the wildcard-aware risk of all rows of t, outliers
// included, projected onto qis.
func WildcardRisk(t table.Table, qis table.QuasiIdentifiers, wildcard string, threshold float64, p progress.Phase) (WildcardSummary, error) {
	if err := checks.CheckWildcard(wildcard); err != nil {
		return WildcardSummary{}, fmt.Errorf("samplerisk.WildcardRisk: %w", err)
	}
	if err := checks.CheckThreshold(threshold); err != nil {
		return WildcardSummary{}, fmt.Errorf("samplerisk.WildcardRisk: %w", err)
	}
	cols, err := qis.Resolve(t)
	if err != nil {
		return WildcardSummary{}, err
	}
	g, err := eqclass.GroupRows(t, cols, p.Sub(0, 0.3), &eqclass.GroupOptions{IncludeOutliers: true})
	if err != nil {
		return WildcardSummary{}, err
	}
	return wildcardRisk(g, len(cols), wildcard, threshold, p.Sub(0.3, 1))
}

func wildcardRisk(g *eqclass.Grouping, depth int, wildcard string, threshold float64, p progress.Phase) (WildcardSummary, error) {
	sum := WildcardSummary{threshold: threshold}
	groups := g.Groups()
	if len(groups) == 0 {
		p.Done()
		return sum, nil
	}

	insert := p.Sub(0, 0.3)
	tr := newTrie(wildcard, depth)
	for i, grp := range groups {
		if err := insert.Check(); err != nil {
			return WildcardSummary{}, err
		}
		if err := tr.insert(grp.Key, grp.Size); err != nil {
			return WildcardSummary{}, err
		}
		insert.Report(i+1, len(groups))
	}

	match := p.Sub(0.3, 1)
	var riskSum float64
	var atRisk int
	for i, grp := range groups {
		if err := match.Check(); err != nil {
			return WildcardSummary{}, err
		}
		// A class always matches itself, so the count is at least its size.
		risk := 1 / float64(tr.matches(grp.Key))
		if risk > sum.highestRisk {
			sum.highestRisk = risk
		}
		riskSum += risk * float64(grp.Size)
		if risk > threshold {
			atRisk += grp.Size
		}
		match.Report(i+1, len(groups))
	}
	n := float64(g.NumRecords())
	sum.averageRisk = riskSum / n
	sum.recordsAtRisk = float64(atRisk) / n
	p.Done()
	return sum, nil
}
