package utils_test

import (
	"math"
	"testing"

	"github.com/roamline/roamline-server/internal/utils"
)

type coords struct {
	lat float64
	lng float64
}

var (
	devonTower      = coords{35.4669626, -97.5280147}
	anthemBrewing   = coords{35.4674537, -97.5331325}
	willRogers      = coords{35.3954731, -97.6065239}
	gatewayArch     = coords{38.6251432, -90.1970501}
	statueOfLiberty = coords{40.6892494, -74.0445004}
	reykjavik       = coords{64.1334904, -21.8524423}
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	// Stops a few blocks apart
	dist := math.Round(utils.Haversine(devonTower.lat, devonTower.lng, anthemBrewing.lat, anthemBrewing.lng))
	if dist != 467 {
		t.Errorf("expected 467 meters between Devon Tower and Anthem Brewing, got %f", dist)
	}
	dist = math.Round(utils.Haversine(anthemBrewing.lat, anthemBrewing.lng, devonTower.lat, devonTower.lng))
	if dist != 467 {
		t.Errorf("expected 467 meters between Anthem Brewing and Devon Tower, got %f", dist)
	}

	// Stops across town
	dist = math.Round(utils.Haversine(devonTower.lat, devonTower.lng, willRogers.lat, willRogers.lng))
	if dist != 10667 {
		t.Errorf("expected 10667 meters between Devon Tower and Will Rogers, got %f", dist)
	}

	// A full driving day
	dist = math.Round(utils.Haversine(gatewayArch.lat, gatewayArch.lng, statueOfLiberty.lat, statueOfLiberty.lng))
	if dist != 1399606 {
		t.Errorf("expected 1399606 meters between Gateway Arch and Statue of Liberty, got %f", dist)
	}
	dist = math.Round(utils.Haversine(statueOfLiberty.lat, statueOfLiberty.lng, gatewayArch.lat, gatewayArch.lng))
	if dist != 1399606 {
		t.Errorf("expected 1399606 meters between Statue of Liberty and Gateway Arch, got %f", dist)
	}

	// Intercontinental
	dist = math.Round(utils.Haversine(reykjavik.lat, reykjavik.lng, gatewayArch.lat, gatewayArch.lng))
	if dist != 5178408 {
		t.Errorf("expected 5178408 meters between Reykjavík and Gateway Arch, got %f", dist)
	}
	dist = math.Round(utils.Haversine(gatewayArch.lat, gatewayArch.lng, reykjavik.lat, reykjavik.lng))
	if dist != 5178408 {
		t.Errorf("expected 5178408 meters between Gateway Arch and Reykjavík, got %f", dist)
	}
}
