package services

import (
	"context"
	"net/url"
	"testing"

	"hotel-booking/models"
	"hotel-booking/utils"
)

func TestOverlapBoundaries(t *testing.T) {
	existing := models.DateRange{Start: date("2025-07-10"), End: date("2025-07-15")}
	cases := []struct {
		name     string
		in, out  string
		overlaps bool
	}{
		{"touching before", "2025-07-05", "2025-07-10", false},
		{"touching after", "2025-07-15", "2025-07-18", false},
		{"disjoint", "2025-07-20", "2025-07-22", false},
		{"identical", "2025-07-10", "2025-07-15", true},
		{"nested", "2025-07-11", "2025-07-13", true},
		{"spanning", "2025-07-08", "2025-07-17", true},
		{"starts within", "2025-07-14", "2025-07-16", true},
		{"ends within", "2025-07-08", "2025-07-11", true},
	}
	for _, tc := range cases {
		want := models.DateRange{Start: date(tc.in), End: date(tc.out)}
		if got := existing.Overlaps(want); got != tc.overlaps {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.overlaps)
		}
		if got := want.Overlaps(existing); got != tc.overlaps {
			t.Errorf("%s (reversed): Overlaps = %v, want %v", tc.name, got, tc.overlaps)
		}
	}
}

func TestIsAvailableAgainstStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	avail := NewAvailabilityService(f.store)

	b := f.book(t, f.guest, f.room, models.PaymentCash, 10, 5) // days 10..15
	in, out := b.CheckInDate, b.CheckOutDate

	cases := []struct {
		name      string
		from, to  int
		available bool
	}{
		{"touching before", 5, 10, true},
		{"touching after", 15, 18, true},
		{"disjoint", 20, 22, true},
		{"identical", 10, 15, false},
		{"nested", 11, 13, false},
		{"spanning", 8, 17, false},
	}
	base := in.AddDate(0, 0, -10)
	for _, tc := range cases {
		ok, err := avail.IsAvailable(ctx, f.room.ID, base.AddDate(0, 0, tc.from), base.AddDate(0, 0, tc.to))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.available {
			t.Errorf("%s: available = %v, want %v", tc.name, ok, tc.available)
		}
	}

	// other rooms are unaffected
	if ok, _ := avail.IsAvailable(ctx, f.otherRoom.ID, in, out); !ok {
		t.Fatal("booking on one room must not block another room")
	}

	// cancelled and checked-out bookings free the dates
	if _, err := f.bookings.UpdateBooking(ctx, f.guest, b.ID, BookingChanges{Status: statusPtr(models.BookingCancelled)}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := avail.IsAvailable(ctx, f.room.ID, in, out); !ok {
		t.Fatal("cancelled booking must not block the room")
	}

	_, err := avail.IsAvailable(ctx, f.room.ID, out, in)
	expectKind(t, err, utils.KindInvalidInput)
}

func TestListAvailableRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	avail := NewAvailabilityService(f.store)

	f.book(t, f.guest, f.room, models.PaymentCash, 10, 3)
	q, err := utils.ParseListQuery(url.Values{}, utils.RoomResource)
	if err != nil {
		t.Fatal(err)
	}

	in, out := stay(11, 1)
	rooms, err := avail.ListAvailableRooms(ctx, AvailableRoomsQuery{CheckIn: in, CheckOut: out, Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0].ID != f.otherRoom.ID {
		t.Fatalf("expected only the other room, got %+v", rooms)
	}

	in, out = stay(30, 2)
	rooms, _ = avail.ListAvailableRooms(ctx, AvailableRoomsQuery{CheckIn: in, CheckOut: out, HotelID: &f.hotel.ID, Query: q})
	if len(rooms) != 1 || rooms[0].ID != f.room.ID {
		t.Fatalf("expected hotel filter to keep only room %d, got %+v", f.room.ID, rooms)
	}

	f.setRoomAvailability(t, f.otherRoom.ID, false)
	rooms, _ = avail.ListAvailableRooms(ctx, AvailableRoomsQuery{CheckIn: in, CheckOut: out, Query: q})
	if len(rooms) != 1 || rooms[0].ID != f.room.ID {
		t.Fatalf("rooms flagged unavailable must be excluded, got %+v", rooms)
	}

	filtered, _ := utils.ParseListQuery(url.Values{"pricePerNight[gte]": {"200"}}, utils.RoomResource)
	f.setRoomAvailability(t, f.otherRoom.ID, true)
	rooms, _ = avail.ListAvailableRooms(ctx, AvailableRoomsQuery{CheckIn: in, CheckOut: out, Query: filtered})
	if len(rooms) != 1 || rooms[0].ID != f.otherRoom.ID {
		t.Fatalf("expected price filter to keep the suite, got %+v", rooms)
	}
}
