package bustracking

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	busstore "github.com/dalemusser/collegeportal/internal/app/store/buses"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestBusTracking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	router := Routes(NewHandler(db, uierrors.NewErrorLogger(logger), logger))

	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := busstore.New(db)
	seed := func(num, name string, active bool) models.Bus {
		b, err := store.Create(ctx, models.Bus{
			RouteNumber: num,
			RouteName:   name,
			Stops:       []models.BusStop{{Name: "Main Gate", Location: models.GeoPoint{Lat: 12.97, Lng: 77.59}, Order: 1}},
			IsActive:    active,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return b
	}
	seed("R3", "East Loop", true)
	seed("R1", "North Loop", true)
	retired := seed("R2", "Old Loop", false)

	user := testutil.StudentUser()

	t.Run("list active sorted", func(t *testing.T) {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))
		rec.AssertStatus(t, http.StatusOK)
		var out []models.Bus
		rec.DecodeEnvelope(t, &out)
		if len(out) != 2 || out[0].RouteNumber != "R1" || out[1].RouteNumber != "R3" {
			t.Errorf("got %+v", out)
		}
		rec.AssertContains(t, `"count":2`)
	})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"inactive by id", "/" + retired.ID.Hex(), http.StatusOK},
		{"unknown", "/" + primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"bad id", "/nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, tt.path, user))
			rec.AssertStatus(t, tt.status)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})
}
