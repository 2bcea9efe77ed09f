// Package link replaces the contents of many-to-many join tables.
//
// Every bulk "sync" of the portal (a role's services, a service's roles, a user's roles)
// goes through Replace: the owner ends up linked to exactly the requested targets,
// links already present are left untouched, and the whole change is one transaction.
package link

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
)

// Join describes one side of a join table.
type Join struct {
	// Table is the join table.
	Table string
	// OwnerColumn references the row whose link set is replaced.
	OwnerColumn string
	// TargetColumn references the linked rows.
	TargetColumn string
	// TargetTable holds the linked rows; requested ids must exist there.
	TargetTable string
	// Field names the request field carrying the target ids, used in errors.
	Field string
}

// Join table views used by the portal.
var (
	RoleServices = Join{ //nolint:gochecknoglobals
		Table: "role_service", OwnerColumn: "role_id", TargetColumn: "service_id",
		TargetTable: "services", Field: "service_ids",
	}
	ServiceRoles = Join{ //nolint:gochecknoglobals
		Table: "role_service", OwnerColumn: "service_id", TargetColumn: "role_id",
		TargetTable: "roles", Field: "role_ids",
	}
	UserRoles = Join{ //nolint:gochecknoglobals
		Table: "role_user", OwnerColumn: "user_id", TargetColumn: "role_id",
		TargetTable: "roles", Field: "role_ids",
	}
)

// Result lists what Replace changed. All slices are sorted ascending.
type Result struct {
	Added   []uint64 `json:"added"`
	Removed []uint64 `json:"removed"`
	Kept    []uint64 `json:"kept"`
}

// Changed reports whether the join table was modified.
func (r Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// MissingError is returned when requested target ids do not exist.
type MissingError struct {
	Field string
	IDs   []uint64
}

func (e *MissingError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}

	return fmt.Sprintf("the selected %s are invalid: %s", e.Field, strings.Join(ids, ", "))
}

// IsMissing reports whether err is a MissingError.
func IsMissing(err error) bool {
	var m *MissingError

	return errors.As(err, &m)
}

// Replace sets the targets linked to owner to exactly targetIDs.
// Unknown target ids are rejected with a MissingError before anything is written.
// Calling it twice with the same ids is a no-op the second time.
func Replace(db *gorm.DB, join Join, ownerID uint64, targetIDs []uint64) (Result, error) {
	if db == nil {
		return Result{}, controller.ErrDBNil
	}

	want := unique(targetIDs)

	var res Result

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkTargets(tx, join, want); err != nil {
			return err
		}

		var current []uint64
		if err := tx.Table(join.Table).
			Where(join.OwnerColumn+" = ?", ownerID).
			Pluck(join.TargetColumn, &current).Error; err != nil {
			return fmt.Errorf("failed to read %s: %w", join.Table, err)
		}

		res = diff(unique(current), want)

		if len(res.Removed) > 0 {
			q := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s IN ?", join.Table, join.OwnerColumn, join.TargetColumn)
			if err := tx.Exec(q, ownerID, res.Removed).Error; err != nil {
				return fmt.Errorf("failed to unlink from %s: %w", join.Table, err)
			}
		}

		q := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", join.Table, join.OwnerColumn, join.TargetColumn)
		for _, id := range res.Added {
			if err := tx.Exec(q, ownerID, id).Error; err != nil {
				return fmt.Errorf("failed to link into %s: %w", join.Table, err)
			}
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

func checkTargets(tx *gorm.DB, join Join, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	var found []uint64
	if err := tx.Table(join.TargetTable).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to read %s: %w", join.TargetTable, err)
	}

	if len(found) == len(ids) {
		return nil
	}

	var missing []uint64

	for _, id := range ids {
		if !slices.Contains(found, id) {
			missing = append(missing, id)
		}
	}

	return &MissingError{Field: join.Field, IDs: missing}
}

func diff(current, want []uint64) Result {
	res := Result{Added: []uint64{}, Removed: []uint64{}, Kept: []uint64{}}

	for _, id := range want {
		if slices.Contains(current, id) {
			res.Kept = append(res.Kept, id)
		} else {
			res.Added = append(res.Added, id)
		}
	}

	for _, id := range current {
		if !slices.Contains(want, id) {
			res.Removed = append(res.Removed, id)
		}
	}

	return res
}

// unique returns the sorted, de-duplicated ids.
func unique(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)

	return slices.Compact(out)
}
