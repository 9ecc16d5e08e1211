package store

import "fmt"

// GrowthError reports a relation whose size after a batch of inserts is not
// its size before plus the tuples the batch inserted.
type GrowthError struct {
	Rel      Relation
	Before   int
	After    int
	Inserted int
}

func (e *GrowthError) Error() string {
	return fmt.Sprintf("%s went from %d to %d but %d tuple(s) were inserted",
		e.Rel, e.Before, e.After, e.Inserted)
}

// CheckGrowth verifies after[rel] == before[rel] + inserted[rel] for every
// relation. Relations are append-only, so a mismatch means a tuple was lost
// or written by someone else between the two counts.
func CheckGrowth(before, after, inserted map[Relation]int) error {
	for _, rel := range Relations() {
		if after[rel] != before[rel]+inserted[rel] {
			return &GrowthError{
				Rel:      rel,
				Before:   before[rel],
				After:    after[rel],
				Inserted: inserted[rel],
			}
		}
	}
	return nil
}
