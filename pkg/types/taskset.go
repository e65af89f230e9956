package types

import "fmt"

// SchemaVersion is the current on-disk document schema version.
const SchemaVersion = 1

// Meta is the _meta block carried by every persisted document.
type Meta struct {
	SchemaVersion int    `json:"schemaVersion"`
	Checksum      string `json:"checksum"`
}

// TaskSet is the active task document of one project: a _meta block plus
// the ordered task list. The checksum in Meta covers the marshaled task
// list; the store accessor recomputes and verifies it on every load.
type TaskSet struct {
	Meta  Meta   `json:"_meta"`
	Tasks []Task `json:"tasks"`
}

// NewTaskSet returns an empty task set at the current schema version.
func NewTaskSet() *TaskSet {
	return &TaskSet{
		Meta:  Meta{SchemaVersion: SchemaVersion},
		Tasks: []Task{},
	}
}

// Find returns a pointer to the task with the given id, or nil.
func (s *TaskSet) Find(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Add appends a task to the set.
// Returns ErrInvalidID for a malformed id and ErrDuplicateID if the id
// is already present.
func (s *TaskSet) Add(task Task) error {
	if err := ValidateTaskID(task.ID); err != nil {
		return err
	}
	if s.Find(task.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}
	s.Tasks = append(s.Tasks, task)
	return nil
}

// Remove deletes every task whose id is in ids, preserving the order of
// the remaining tasks. It returns the removed tasks in set order.
func (s *TaskSet) Remove(ids map[string]bool) []Task {
	var removed []Task
	kept := s.Tasks[:0]
	for _, t := range s.Tasks {
		if ids[t.ID] {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.Tasks = kept
	return removed
}

// StripDepends removes every id in ids from every task's Depends list.
// Qualified (project:id) references are left untouched; only bare local
// references can name an archived task in the same project.
func (s *TaskSet) StripDepends(ids map[string]bool) {
	for i := range s.Tasks {
		t := &s.Tasks[i]
		if len(t.Depends) == 0 {
			continue
		}
		kept := t.Depends[:0]
		for _, ref := range t.Depends {
			dep, err := ParseDepRef(ref)
			if err == nil && dep.IsLocal() && ids[dep.ID] {
				continue
			}
			kept = append(kept, ref)
		}
		if len(kept) == 0 {
			t.Depends = nil
		} else {
			t.Depends = kept
		}
	}
}
