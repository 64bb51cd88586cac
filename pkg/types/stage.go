// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StageID is the fixed ordinal of a pipeline stage, 1 through 6.
type StageID int

const (
	StageDecompose StageID = iota + 1
	StageSearch
	StageFetchContent
	StageAnalyze
	StageReport
	StageScript
)

// StageCount is the number of stages in every research run.
const StageCount = 6

// AllStages lists the stages in execution order.
var AllStages = [StageCount]StageID{
	StageDecompose, StageSearch, StageFetchContent, StageAnalyze, StageReport, StageScript,
}

var stageLabels = map[StageID]string{
	StageDecompose:    "Decomposing topic",
	StageSearch:       "Searching papers",
	StageFetchContent: "Reading full text",
	StageAnalyze:      "Analyzing insights",
	StageReport:       "Writing research report",
	StageScript:       "Writing script",
}

// Label returns the human-readable stage name.
func (id StageID) Label() string {
	if l, ok := stageLabels[id]; ok {
		return l
	}
	return "Unknown stage"
}

// String returns a short machine name used in logs.
func (id StageID) String() string {
	switch id {
	case StageDecompose:
		return "decompose"
	case StageSearch:
		return "search"
	case StageFetchContent:
		return "fetch_content"
	case StageAnalyze:
		return "analyze"
	case StageReport:
		return "report"
	case StageScript:
		return "script"
	}
	return "unknown"
}

// StageStatus is the lifecycle state of a stage within a run.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageCompleted  StageStatus = "completed"
)

// PipelineStage is the observable state of one stage. ElapsedMs and
// CompletedAt are set only when Status is completed.
type PipelineStage struct {
	ID          StageID     `json:"id" yaml:"id"`
	Label       string      `json:"label" yaml:"label"`
	Status      StageStatus `json:"status" yaml:"status"`
	SubItems    []string    `json:"sub_items" yaml:"sub_items"`
	ElapsedMs   *int64      `json:"elapsed_ms,omitempty" yaml:"elapsed_ms,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// NewStages returns the six stages in pending state.
func NewStages() []PipelineStage {
	stages := make([]PipelineStage, StageCount)
	for i, id := range AllStages {
		stages[i] = PipelineStage{ID: id, Label: id.Label(), Status: StagePending}
	}
	return stages
}

// Clone returns a deep copy of the stage.
func (s PipelineStage) Clone() PipelineStage {
	c := s
	if s.SubItems != nil {
		c.SubItems = append([]string(nil), s.SubItems...)
	}
	if s.ElapsedMs != nil {
		ms := *s.ElapsedMs
		c.ElapsedMs = &ms
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	return c
}
