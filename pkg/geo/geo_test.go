package geo

import (
	"encoding/json"
	"math"
	"testing"

	"fleet-tracker/pkg/ontology"
)

func TestPositionChanged(t *testing.T) {
	t.Run("no previous position counts as changed", func(t *testing.T) {
		if !PositionChanged(nil, ontology.Position{Latitude: 48.8, Longitude: 2.3}) {
			t.Fatal("expected change for truck without a stored position")
		}
	})

	t.Run("identical coordinates are a no-op", func(t *testing.T) {
		old := &ontology.Position{Latitude: 48.8, Longitude: 2.3}
		if PositionChanged(old, ontology.Position{Latitude: 48.8, Longitude: 2.3}) {
			t.Fatal("expected no change for identical coordinates")
		}
	})

	t.Run("latitude change detected", func(t *testing.T) {
		old := &ontology.Position{Latitude: 48.8, Longitude: 2.3}
		if !PositionChanged(old, ontology.Position{Latitude: 48.9, Longitude: 2.3}) {
			t.Fatal("expected change when latitude differs")
		}
	})

	t.Run("longitude change detected", func(t *testing.T) {
		old := &ontology.Position{Latitude: 48.8, Longitude: 2.3}
		if !PositionChanged(old, ontology.Position{Latitude: 48.8, Longitude: 2.4}) {
			t.Fatal("expected change when longitude differs")
		}
	})

	t.Run("json round-trip preserves the no-op case", func(t *testing.T) {
		// Equality is exact, so a coordinate that survived JSON
		// encoding must still compare equal to the stored value.
		old := &ontology.Position{Latitude: 48.856613, Longitude: 2.352222}

		data, err := json.Marshal(old)
		if err != nil {
			t.Fatal(err)
		}
		var next ontology.Position
		if err := json.Unmarshal(data, &next); err != nil {
			t.Fatal(err)
		}

		if PositionChanged(old, next) {
			t.Fatal("round-tripped coordinates should not register as changed")
		}
	})
}

func TestCentroid(t *testing.T) {
	fallback := ontology.Position{Latitude: 30, Longitude: 10}

	t.Run("mean of two points", func(t *testing.T) {
		got := Centroid([]ontology.Position{
			{Latitude: 10, Longitude: 20},
			{Latitude: 30, Longitude: 40},
		}, fallback)
		want := ontology.Position{Latitude: 20, Longitude: 30}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("single point is its own centroid", func(t *testing.T) {
		got := Centroid([]ontology.Position{{Latitude: 5, Longitude: 5}}, fallback)
		want := ontology.Position{Latitude: 5, Longitude: 5}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("empty fleet returns the fallback center", func(t *testing.T) {
		got := Centroid(nil, fallback)
		if got != fallback {
			t.Fatalf("got %+v, want fallback %+v", got, fallback)
		}
		if math.IsNaN(got.Latitude) || math.IsNaN(got.Longitude) {
			t.Fatal("centroid of empty input must not be NaN")
		}
	})

	t.Run("out-of-range coordinates do not panic", func(t *testing.T) {
		got := Centroid([]ontology.Position{
			{Latitude: 9999, Longitude: -9999},
			{Latitude: -9999, Longitude: 9999},
		}, fallback)
		want := ontology.Position{Latitude: 0, Longitude: 0}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}
