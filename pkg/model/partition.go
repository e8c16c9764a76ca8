// Package model holds the domain types shared between internal/repository
// and the rest of the service.
package model

import "time"

// PartitionRun is the persisted record of one completed teardown analysis:
// the summary that internal/analysisdriver.Result produces, plus the
// identity and timestamp fields the storage layer adds.
type PartitionRun struct {
	RunID       string
	Arch0Anchor string
	Arch1Anchor string

	TotalCalls           uint64
	TotalAccesses        uint64
	CutWeight            uint64
	AcceleratorFunctions []string
	BoundaryFunctions    []string

	// DotArtifactKey is the object-storage key (or local path) the cost
	// graph's DOT file was uploaded under, if an uploader was configured.
	DotArtifactKey string

	CreatedAt time.Time
}
