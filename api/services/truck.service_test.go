package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fleet-tracker/pkg/ontology"
	"fleet-tracker/pkg/shared"
)

// fakeRegistry is an in-memory TruckRegistry keyed by document id.
type fakeRegistry struct {
	trucks  map[string]*ontology.Truck
	findErr error
}

func newFakeRegistry(trucks ...*ontology.Truck) *fakeRegistry {
	r := &fakeRegistry{trucks: make(map[string]*ontology.Truck)}
	for _, truck := range trucks {
		r.trucks[truck.DocumentID] = truck
	}
	return r
}

func (r *fakeRegistry) FindByIdentifier(identifier string) (*ontology.Truck, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, truck := range r.trucks {
		if truck.Identifier == identifier {
			clone := *truck
			return &clone, nil
		}
	}
	return nil, ontology.ErrTruckNotFound
}

func (r *fakeRegistry) FindAll() ([]ontology.Truck, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]ontology.Truck, 0, len(r.trucks))
	for _, truck := range r.trucks {
		out = append(out, *truck)
	}
	return out, nil
}

func (r *fakeRegistry) UpdateByID(documentID string, update ontology.PositionUpdate) (*ontology.Truck, error) {
	truck, ok := r.trucks[documentID]
	if !ok {
		return nil, ontology.ErrTruckNotFound
	}
	pos := update.Position
	truck.Position = &pos
	if update.PositionUpdatedAt != nil {
		truck.PositionUpdatedAt = update.PositionUpdatedAt
	}
	clone := *truck
	return &clone, nil
}

func (r *fakeRegistry) Create(truck *ontology.Truck) error {
	for _, existing := range r.trucks {
		if existing.Identifier == truck.Identifier {
			return ontology.ErrDuplicateIdentifier
		}
	}
	clone := *truck
	r.trucks[truck.DocumentID] = &clone
	return nil
}

func truckT1() *ontology.Truck {
	return &ontology.Truck{
		DocumentID: "doc-1",
		Identifier: "T1",
		Model:      shared.ModelToyotaCorolla,
		Position:   &ontology.Position{Latitude: 48.8, Longitude: 2.3},
		Key:        "secret",
	}
}

func newTestService(registry TruckRegistry, now time.Time) *TruckService {
	svc := NewTruckService(registry, nil, nil, ontology.Position{Latitude: 30, Longitude: 10})
	svc.now = func() time.Time { return now }
	return svc
}

func TestUpdatePosition(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("moving a truck stamps the change time", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		svc := newTestService(registry, now)

		summary, err := svc.UpdatePosition(&ontology.UpdatePositionRequest{
			Identifier: "T1", Latitude: 48.9, Longitude: 2.3, Key: "secret",
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}

		if summary.Identifier != "T1" {
			t.Fatalf("unexpected identifier: %s", summary.Identifier)
		}
		if summary.Position == nil || summary.Position.Latitude != 48.9 || summary.Position.Longitude != 2.3 {
			t.Fatalf("unexpected position: %+v", summary.Position)
		}
		if summary.PositionUpdatedAt == nil || !summary.PositionUpdatedAt.Equal(now) {
			t.Fatalf("expected positionUpdatedAt %v, got %v", now, summary.PositionUpdatedAt)
		}
	})

	t.Run("resubmitting identical coordinates keeps the old stamp", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		svc := newTestService(registry, now)

		req := &ontology.UpdatePositionRequest{
			Identifier: "T1", Latitude: 48.9, Longitude: 2.3, Key: "secret",
		}
		first, err := svc.UpdatePosition(req)
		if err != nil {
			t.Fatal(err)
		}

		later := now.Add(10 * time.Minute)
		svc.now = func() time.Time { return later }

		second, err := svc.UpdatePosition(req)
		if err != nil {
			t.Fatal(err)
		}

		if second.Position == nil || *second.Position != *first.Position {
			t.Fatalf("position should persist unchanged, got %+v", second.Position)
		}
		if !second.PositionUpdatedAt.Equal(*first.PositionUpdatedAt) {
			t.Fatalf("no-op update bumped positionUpdatedAt: %v -> %v",
				first.PositionUpdatedAt, second.PositionUpdatedAt)
		}
	})

	t.Run("first position for a truck without one counts as a change", func(t *testing.T) {
		fresh := truckT1()
		fresh.Position = nil
		registry := newFakeRegistry(fresh)
		svc := newTestService(registry, now)

		summary, err := svc.UpdatePosition(&ontology.UpdatePositionRequest{
			Identifier: "T1", Latitude: 48.8, Longitude: 2.3, Key: "secret",
		})
		if err != nil {
			t.Fatal(err)
		}
		if summary.PositionUpdatedAt == nil || !summary.PositionUpdatedAt.Equal(now) {
			t.Fatalf("expected stamp for first position, got %v", summary.PositionUpdatedAt)
		}
	})

	t.Run("wrong key is rejected and nothing is persisted", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		svc := newTestService(registry, now)

		_, err := svc.UpdatePosition(&ontology.UpdatePositionRequest{
			Identifier: "T1", Latitude: 48.9, Longitude: 2.3, Key: "wrong",
		})
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}

		stored, err := registry.FindByIdentifier("T1")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Position.Latitude != 48.8 || stored.PositionUpdatedAt != nil {
			t.Fatalf("rejected update mutated the store: %+v", stored)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		svc := newTestService(registry, now)

		_, err := svc.UpdatePosition(&ontology.UpdatePositionRequest{
			Identifier: "ghost", Latitude: 0, Longitude: 0, Key: "x",
		})
		if !errors.Is(err, ontology.ErrTruckNotFound) {
			t.Fatalf("expected ErrTruckNotFound, got %v", err)
		}
	})

	t.Run("registry failure surfaces instead of a silent success", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		registry.findErr = errors.New("connection reset")
		svc := newTestService(registry, now)

		_, err := svc.UpdatePosition(&ontology.UpdatePositionRequest{
			Identifier: "T1", Latitude: 48.9, Longitude: 2.3, Key: "secret",
		})
		if err == nil || !strings.Contains(err.Error(), "connection reset") {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(newFakeRegistry(truckT1()), time.Now())

	t.Run("matching key", func(t *testing.T) {
		ok, err := svc.Authenticate("T1", "secret")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected matching key to authenticate")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		ok, err := svc.Authenticate("T1", "guess")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected mismatched key to fail")
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := svc.Authenticate("ghost", "secret")
		if !errors.Is(err, ontology.ErrTruckNotFound) {
			t.Fatalf("expected ErrTruckNotFound, got %v", err)
		}
	})
}

func TestListPositions(t *testing.T) {
	t.Run("empty fleet returns an empty slice", func(t *testing.T) {
		svc := newTestService(newFakeRegistry(), time.Now())

		summaries, err := svc.ListPositions()
		if err != nil {
			t.Fatal(err)
		}
		if summaries == nil || len(summaries) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", summaries)
		}
	})

	t.Run("serialized output never contains the key", func(t *testing.T) {
		t2 := &ontology.Truck{
			DocumentID: "doc-2",
			Identifier: "T2",
			Model:      shared.ModelFordFSeries,
			Position:   &ontology.Position{Latitude: 10, Longitude: 10},
			Key:        "super-secret-key",
		}
		svc := newTestService(newFakeRegistry(truckT1(), t2), time.Now())

		summaries, err := svc.ListPositions()
		if err != nil {
			t.Fatal(err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(summaries))
		}

		payload, err := json.Marshal(summaries)
		if err != nil {
			t.Fatal(err)
		}
		for _, secret := range []string{"secret", "super-secret-key", `"key"`} {
			if strings.Contains(string(payload), secret) {
				t.Fatalf("read path leaked %q: %s", secret, payload)
			}
		}

		for _, summary := range summaries {
			if summary.DocumentID == "" || summary.Model == "" {
				t.Fatalf("projection missing fields: %+v", summary)
			}
		}
	})
}

func TestMapCenter(t *testing.T) {
	t.Run("centroid of the fleet", func(t *testing.T) {
		a := truckT1()
		a.Position = &ontology.Position{Latitude: 0, Longitude: 0}
		b := &ontology.Truck{
			DocumentID: "doc-2",
			Identifier: "T2",
			Model:      shared.ModelHondaCRV,
			Position:   &ontology.Position{Latitude: 10, Longitude: 10},
			Key:        "k2",
		}
		svc := newTestService(newFakeRegistry(a, b), time.Now())

		center, err := svc.MapCenter()
		if err != nil {
			t.Fatal(err)
		}
		want := ontology.Position{Latitude: 5, Longitude: 5}
		if center != want {
			t.Fatalf("got %+v, want %+v", center, want)
		}
	})

	t.Run("empty fleet falls back to the default center", func(t *testing.T) {
		svc := newTestService(newFakeRegistry(), time.Now())

		center, err := svc.MapCenter()
		if err != nil {
			t.Fatal(err)
		}
		want := ontology.Position{Latitude: 30, Longitude: 10}
		if center != want {
			t.Fatalf("got %+v, want %+v", center, want)
		}
	})

	t.Run("trucks without positions are skipped", func(t *testing.T) {
		placed := truckT1()
		placed.Position = &ontology.Position{Latitude: 5, Longitude: 5}
		unplaced := &ontology.Truck{
			DocumentID: "doc-2",
			Identifier: "T2",
			Model:      shared.ModelToyotaRAV4,
			Key:        "k2",
		}
		svc := newTestService(newFakeRegistry(placed, unplaced), time.Now())

		center, err := svc.MapCenter()
		if err != nil {
			t.Fatal(err)
		}
		want := ontology.Position{Latitude: 5, Longitude: 5}
		if center != want {
			t.Fatalf("got %+v, want %+v", center, want)
		}
	})
}

func TestCreateTruck(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("create assigns a document id", func(t *testing.T) {
		registry := newFakeRegistry()
		svc := newTestService(registry, now)

		truck, err := svc.CreateTruck(&ontology.CreateTruckRequest{
			Identifier: "T9",
			Model:      shared.ModelDaciaSandero,
			Key:        "k9",
		})
		if err != nil {
			t.Fatal(err)
		}
		if truck.DocumentID == "" {
			t.Fatal("expected assigned document id")
		}
		if truck.PositionUpdatedAt != nil {
			t.Fatal("new truck must not have a position change stamp")
		}
	})

	t.Run("duplicate identifier is rejected", func(t *testing.T) {
		registry := newFakeRegistry(truckT1())
		svc := newTestService(registry, now)

		_, err := svc.CreateTruck(&ontology.CreateTruckRequest{
			Identifier: "T1",
			Model:      shared.ModelDaciaSandero,
			Key:        "other",
		})
		if !errors.Is(err, ontology.ErrDuplicateIdentifier) {
			t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
		}
	})
}
