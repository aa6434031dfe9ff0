package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// TableSession is the occupancy state of a physical table. A partial unique
// index in the schema guarantees at most one open (closed_at IS NULL) session
// per table.
type TableSession struct {
	ID       uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID  uuid.UUID                `gorm:"column:venue_id;type:uuid;not null"`
	TableID  uuid.UUID                `gorm:"column:table_id;type:uuid;not null"`
	Status   enums.TableSessionStatus `gorm:"column:status;type:table_session_status;not null;default:'OCCUPIED'"`
	OrderID  *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	OpenedAt time.Time                `gorm:"column:opened_at;autoCreateTime"`
	ClosedAt *time.Time               `gorm:"column:closed_at"`
}
