// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Status is the per-item batch outcome.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ReportItem records one input item's outcome with the sub-scores that
// justify it.
type ReportItem struct {
	ItemID              string              `yaml:"item_id" json:"item_id"`
	ExternalKey         string              `yaml:"external_key,omitempty" json:"external_key,omitempty"`
	Title               string              `yaml:"title,omitempty" json:"title,omitempty"`
	Status              Status              `yaml:"status" json:"status"`
	Reason              types.RejectReason  `yaml:"reason,omitempty" json:"reason,omitempty"`
	Detail              string              `yaml:"detail,omitempty" json:"detail,omitempty"`
	Quality             *types.QualityScore `yaml:"quality,omitempty" json:"quality,omitempty"`
	TimeCategory        types.TimeCategory  `yaml:"time_category,omitempty" json:"time_category,omitempty"`
	EnrichmentDefaulted bool                `yaml:"enrichment_defaulted,omitempty" json:"enrichment_defaulted,omitempty"`
}

func (r ReportItem) rejected(reason types.RejectReason, detail string) ReportItem {
	r.Status = StatusRejected
	r.Reason = reason
	r.Detail = detail
	return r
}

// BatchReport summarizes one ingestion run.
type BatchReport struct {
	SourceID   string       `yaml:"source_id" json:"source_id"`
	StartedAt  time.Time    `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at" json:"finished_at"`
	Accepted   int          `yaml:"accepted" json:"accepted"`
	Rejected   int          `yaml:"rejected" json:"rejected"`
	Items      []ReportItem `yaml:"items" json:"items"`
}

// Total returns the number of input items processed.
func (r BatchReport) Total() int {
	return r.Accepted + r.Rejected
}

// HasRejections reports whether any item was rejected.
func (r BatchReport) HasRejections() bool {
	return r.Rejected > 0
}

// WriteYAML writes the report to path.
func (r BatchReport) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding batch report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing batch report %s: %w", path, err)
	}
	return nil
}
