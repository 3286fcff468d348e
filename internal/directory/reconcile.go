package directory

import (
	"fmt"
	"strconv"

	"campus_wayfinder/internal/geocode"
	"campus_wayfinder/internal/models"
)

// PendingID marks a row that was added optimistically and has no server ID yet.
const PendingID = geocode.Placeholder

// OpKind is the kind of an optimistic edit.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpEdit   OpKind = "edit"
	OpDelete OpKind = "delete"
)

// PendingOp is an edit the admin issued that the server has not confirmed.
type PendingOp struct {
	Kind    OpKind          `json:"kind" binding:"required,oneof=add edit delete"`
	ID      uint            `json:"id"`
	Service *models.Service `json:"service"`
}

// Row is one line of the admin service table.
type Row struct {
	ID      string         `json:"id"`
	Pending bool           `json:"pending"`
	Service models.Service `json:"service"`
}

// Reconcile computes what the admin table shows: the server list with the
// pending edits applied in order. Adds append a row with PendingID, edits
// replace the row with the same ID, deletes drop it. sites resolves the
// building of added and edited rows; an unknown building shows as a pending
// placeholder site.
func Reconcile(server []models.Service, pending []PendingOp, sites []models.Site) ([]Row, error) {
	rows := make([]Row, 0, len(server)+len(pending))
	for _, s := range server {
		rows = append(rows, Row{ID: strconv.FormatUint(uint64(s.ID), 10), Service: s})
	}

	for i, op := range pending {
		switch op.Kind {
		case OpAdd:
			if op.Service == nil {
				return nil, fmt.Errorf("%w: op %d: add without service", ErrInvalid, i)
			}
			svc := *op.Service
			svc.Building = lookupBuilding(svc.BuildingID, sites, nil)
			rows = append(rows, Row{ID: PendingID, Pending: true, Service: svc})

		case OpEdit:
			if op.Service == nil {
				return nil, fmt.Errorf("%w: op %d: edit without service", ErrInvalid, i)
			}
			id := strconv.FormatUint(uint64(op.ID), 10)
			for j := range rows {
				if rows[j].ID != id {
					continue
				}
				svc := *op.Service
				svc.ID = op.ID
				svc.Building = lookupBuilding(svc.BuildingID, sites, rows[j].Service.Building)
				rows[j] = Row{ID: id, Pending: true, Service: svc}
			}

		case OpDelete:
			id := strconv.FormatUint(uint64(op.ID), 10)
			kept := rows[:0]
			for _, r := range rows {
				if r.ID != id {
					kept = append(kept, r)
				}
			}
			rows = kept

		default:
			return nil, fmt.Errorf("%w: op %d: unknown kind %q", ErrInvalid, i, op.Kind)
		}
	}
	return rows, nil
}

func lookupBuilding(id *uint, sites []models.Site, current *models.Site) *models.Site {
	if id == nil {
		return nil
	}
	if current != nil && current.ID == *id {
		return current
	}
	for i := range sites {
		if sites[i].ID == *id {
			site := sites[i]
			return &site
		}
	}
	return &models.Site{Name: PendingID}
}
