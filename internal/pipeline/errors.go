/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "errors"
    "fmt"
)

// ErrNoUsableRecords is the systemic failure: every input record was rejected
// by normalization, so there is nothing to analyze.
var ErrNoUsableRecords = errors.New("pipeline: no usable records after normalization")

// ConfigurationError is fatal at startup, before any processing begins.
type ConfigurationError struct {
    Field  string
    Reason string
}

func (e *ConfigurationError) Error() string {
    return fmt.Sprintf("pipeline config: %s: %s", e.Field, e.Reason)
}

// CapacityError rejects an input batch larger than the configured ceiling.
type CapacityError struct {
    Observed int
    Allowed  int
}

func (e *CapacityError) Error() string {
    return fmt.Sprintf("pipeline: input of %d records exceeds the configured maximum of %d", e.Observed, e.Allowed)
}

// RecordFailure is one skipped record. Failures are counted and reported, not
// fatal; the run continues with the remaining records.
type RecordFailure struct {
    Index  int    `json:"index"`
    ID     string `json:"id,omitempty"`
    Reason string `json:"reason"`
}

// NormalizeReport summarizes what normalization kept and dropped.
type NormalizeReport struct {
    Total    int             `json:"total"`
    Accepted int             `json:"accepted"`
    Skipped  int             `json:"skipped"`
    Failures []RecordFailure `json:"failures,omitempty"`
}
