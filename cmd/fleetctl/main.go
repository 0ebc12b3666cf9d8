package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"fleet-tracker/pkg/ontology"
	"fleet-tracker/pkg/shared"
)

// fleetctl is a small client for the tracker API: trucks (or their
// simulators) report positions with `update`, operators inspect the
// fleet with `positions`.

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  fleetctl update <identifier> <latitude> <longitude> <key>")
	fmt.Fprintln(os.Stderr, "  fleetctl positions")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "The server address defaults to http://localhost:8080 and can be")
	fmt.Fprintln(os.Stderr, "overridden with TRACKER_URL.")
	os.Exit(1)
}

func serverURL() string {
	if url := os.Getenv("TRACKER_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	client := &http.Client{Timeout: 10 * time.Second}

	switch os.Args[1] {
	case "update":
		if len(os.Args) != 6 {
			usage()
		}
		latitude, err := strconv.ParseFloat(os.Args[3], 64)
		if err != nil {
			log.Fatalf("Invalid latitude %q: %v", os.Args[3], err)
		}
		longitude, err := strconv.ParseFloat(os.Args[4], 64)
		if err != nil {
			log.Fatalf("Invalid longitude %q: %v", os.Args[4], err)
		}
		if err := updatePosition(client, os.Args[2], latitude, longitude, os.Args[5]); err != nil {
			log.Fatalf("Failed to update position: %v", err)
		}
	case "positions":
		if err := listPositions(client); err != nil {
			log.Fatalf("Failed to fetch positions: %v", err)
		}
	default:
		usage()
	}
}

func updatePosition(client *http.Client, identifier string, latitude, longitude float64, key string) error {
	payload, err := json.Marshal(ontology.UpdatePositionRequest{
		Identifier: identifier,
		Latitude:   latitude,
		Longitude:  longitude,
		Key:        key,
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(serverURL()+"/update-position", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var body shared.DataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}

	pretty, _ := json.MarshalIndent(body.Data, "", "  ")
	fmt.Printf("Position updated:\n%s\n", pretty)
	return nil
}

func listPositions(client *http.Client) error {
	resp, err := client.Get(serverURL() + "/truck-positions")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var summaries []ontology.TruckSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}

	pretty, _ := json.MarshalIndent(summaries, "", "  ")
	fmt.Printf("Current truck positions:\n%s\n", pretty)
	return nil
}

// apiError reads the failure envelope, preferring error.message and
// falling back to the top-level message.
func apiError(resp *http.Response) error {
	var body shared.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	message := body.Message
	if body.Error != nil && body.Error.Message != "" {
		message = body.Error.Message
	}
	if message == "" {
		message = resp.Status
	}

	return fmt.Errorf("%s (%s)", message, resp.Status)
}
