package booking

import (
	"testing"
	"time"
)

func TestSlotFingerprint(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	got := SlotFingerprint(start, end, "3")
	want := "2025-12-15T10:00:00Z_2025-12-15T11:00:00Z_3"
	if got != want {
		t.Fatalf("fingerprint = %q, want %q", got, want)
	}
}

func TestSlotFingerprintNormalizesZone(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	loc := time.FixedZone("UTC+3", 3*60*60)
	shifted := SlotFingerprint(start.In(loc), end.In(loc), "3")
	if shifted != SlotFingerprint(start, end, "3") {
		t.Fatalf("same instant in another zone produced %q", shifted)
	}
}

func TestSlotFingerprintDistinguishesResources(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	if SlotFingerprint(start, end, "1") == SlotFingerprint(start, end, "2") {
		t.Fatal("different resources share a fingerprint")
	}
	if SlotFingerprint(start, end, "1") == SlotFingerprint(start, start.Add(2*time.Hour), "1") {
		t.Fatal("different intervals share a fingerprint")
	}
}
