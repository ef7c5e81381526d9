package domain

import "time"

// RideGroupStatus represents the status of a ride group.
type RideGroupStatus string

const (
	RideGroupStatusPending   RideGroupStatus = "pending"
	RideGroupStatusConfirmed RideGroupStatus = "confirmed"
	RideGroupStatusCancelled RideGroupStatus = "cancelled"
	RideGroupStatusCompleted RideGroupStatus = "completed"
)

// IsCommitted reports whether the group still holds its vehicle for the time slot.
func (s RideGroupStatus) IsCommitted() bool {
	return s == RideGroupStatusPending || s == RideGroupStatusConfirmed
}

// RideGroup is a committed assignment of one vehicle to one route and time window.
// TotalPassengers and TotalLuggageVolume are derived from the members.
type RideGroup struct {
	ID                 string
	VehicleID          string
	FixedRouteID       string
	RequestedTime      time.Time
	TotalPassengers    int
	TotalLuggageVolume float64
	Status             RideGroupStatus
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RideGroupMember links a ride request to a group along with the occupancy it brings.
type RideGroupMember struct {
	ID             string
	RideGroupID    string
	RideRequestID  string
	PassengerCount int
	LuggageVolume  float64
	JoinedAt       time.Time
}

// NewMember builds the membership row for a request joining a group.
func NewMember(id, groupID string, req *RideRequest, joinedAt time.Time) *RideGroupMember {
	return &RideGroupMember{
		ID:             id,
		RideGroupID:    groupID,
		RideRequestID:  req.ID,
		PassengerCount: req.Passengers(),
		LuggageVolume:  req.LuggageVolume(),
		JoinedAt:       joinedAt,
	}
}

// Totals sums passengers and luggage volume over members.
func Totals(members []*RideGroupMember) (int, float64) {
	var passengers int
	var volume float64
	for _, m := range members {
		passengers += m.PassengerCount
		volume += m.LuggageVolume
	}
	return passengers, volume
}
