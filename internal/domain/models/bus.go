package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// BusStop is one scheduled stop on a route.
type BusStop struct {
	Name     string   `bson:"name" json:"name"`
	Location GeoPoint `bson:"location" json:"location"`
	Order    int      `bson:"order" json:"order"`
}

// Bus is a college bus with its route and last known position.
type Bus struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RouteNumber     string             `bson:"route_number" json:"routeNumber"`
	RouteName       string             `bson:"route_name" json:"routeName"`
	Stops           []BusStop          `bson:"stops" json:"stops"`
	CurrentLocation *GeoPoint          `bson:"current_location,omitempty" json:"currentLocation,omitempty"`
	NextStop        string             `bson:"next_stop,omitempty" json:"nextStop,omitempty"`
	ETA             int                `bson:"eta,omitempty" json:"eta,omitempty"` // minutes
	IsActive        bool               `bson:"is_active" json:"isActive"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
