package task

import "strings"

// ListFilter narrows task listings. Nil pointers mean "no constraint".
type ListFilter struct {
	// VisibleTo limits results to tasks the user created, is assigned, or
	// can see through a project membership. Nil for global admins.
	VisibleTo *string
	Status    *Status
	ProjectID *string
	OwnerID   *string
	Sort      Sort
	Skip      int
	Limit     int
}

type SortField int

const (
	SortCreatedAt SortField = iota
	SortUpdatedAt
	SortTitle
	SortStatus
	SortTotalMinutes
)

var sortFieldsByName = map[string]SortField{
	"created_at":    SortCreatedAt,
	"updated_at":    SortUpdatedAt,
	"title":         SortTitle,
	"status":        SortStatus,
	"total_minutes": SortTotalMinutes,
}

var sortColumns = map[SortField]string{
	SortCreatedAt:    "created_at",
	SortUpdatedAt:    "updated_at",
	SortTitle:        "title",
	SortStatus:       "status",
	SortTotalMinutes: "total_minutes",
}

// Column returns the database column backing the sort field.
func (f SortField) Column() string {
	if c, ok := sortColumns[f]; ok {
		return c
	}
	return "created_at"
}

type Sort struct {
	Field SortField
	Desc  bool
}

var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort maps query params onto the allow-list. Unknown fields fall back to
// created_at descending whatever order was asked for.
func ParseSort(field, order string) Sort {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		field = "created_at"
	}

	f, ok := sortFieldsByName[field]
	if !ok {
		return DefaultSort
	}

	return Sort{
		Field: f,
		Desc:  !strings.EqualFold(strings.TrimSpace(order), "asc"),
	}
}

func (s Sort) Direction() string {
	if s.Desc {
		return "DESC"
	}
	return "ASC"
}
