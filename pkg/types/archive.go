package types

import (
	"fmt"
	"time"
)

// ArchiveSource records which archive path moved a task out of the
// active document.
type ArchiveSource string

// Archive sources. Retention covers individually eligible tasks,
// cascade covers complete-family units, and cascade-from covers the
// explicit root-rooted variant.
const (
	SourceRetention   ArchiveSource = "retention"
	SourceCascade     ArchiveSource = "cascade"
	SourceCascadeFrom ArchiveSource = "cascade-from"
)

// validArchiveSources is the set of recognized archive source values.
var validArchiveSources = map[ArchiveSource]bool{
	SourceRetention:   true,
	SourceCascade:     true,
	SourceCascadeFrom: true,
}

// ParseArchiveSource converts a string to an ArchiveSource.
func ParseArchiveSource(s string) (ArchiveSource, error) {
	as := ArchiveSource(s)
	if !validArchiveSources[as] {
		return "", fmt.Errorf("invalid archive source: %q", s)
	}
	return as, nil
}

// ArchiveInfo annotates an archived task copy with how and when it was
// archived and which operation moved it.
type ArchiveInfo struct {
	Source      ArchiveSource `json:"archiveSource"`
	ArchivedAt  time.Time     `json:"archivedAt"`
	OperationID string        `json:"operationId,omitempty"`
}

// ArchiveRecord is an archived copy of a task. The original task fields
// are preserved verbatim under the record.
type ArchiveRecord struct {
	Task    Task        `json:"task"`
	Archive ArchiveInfo `json:"_archive"`
}

// ArchiveSet is the archive document of one project.
type ArchiveSet struct {
	Meta     Meta            `json:"_meta"`
	Archived []ArchiveRecord `json:"archived"`
}

// NewArchiveSet returns an empty archive set at the current schema version.
func NewArchiveSet() *ArchiveSet {
	return &ArchiveSet{
		Meta:     Meta{SchemaVersion: SchemaVersion},
		Archived: []ArchiveRecord{},
	}
}

// Find returns a pointer to the archive record for the given task id,
// or nil. When a task id was archived more than once (archive, restore,
// archive again) the most recent record wins.
func (s *ArchiveSet) Find(id string) *ArchiveRecord {
	for i := len(s.Archived) - 1; i >= 0; i-- {
		if s.Archived[i].Task.ID == id {
			return &s.Archived[i]
		}
	}
	return nil
}

// Remove deletes the most recent archive record for the given task id
// and returns it. Returns nil if no record exists.
func (s *ArchiveSet) Remove(id string) *ArchiveRecord {
	for i := len(s.Archived) - 1; i >= 0; i-- {
		if s.Archived[i].Task.ID == id {
			rec := s.Archived[i]
			s.Archived = append(s.Archived[:i], s.Archived[i+1:]...)
			return &rec
		}
	}
	return nil
}
