package utils

import (
	"net/url"
	"testing"
)

func TestParseListQueryFilters(t *testing.T) {
	values := url.Values{
		"roomType":           {"suite"},
		"pricePerNight[gte]": {"50"},
		"fields":             {"name,roomType"},
		"bogus":              {"1"},
		"sort":               {"-pricePerNight,unknown"},
	}
	q, err := ParseListQuery(values, RoomResource)
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", q.Conditions)
	}
	for _, c := range q.Conditions {
		if c.Field == "fields" {
			t.Fatalf("fields must not become a filter: %+v", c)
		}
	}
	if len(q.Sort) != 1 || q.Sort[0].Column != "price_per_night" || !q.Sort[0].Desc {
		t.Fatalf("unexpected sort %+v", q.Sort)
	}

	_, err = ParseListQuery(url.Values{"capacity[ne]": {"2"}}, RoomResource)
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("unknown operator: expected invalid input, got %v", err)
	}
}

func TestParseListQueryPaging(t *testing.T) {
	q, err := ParseListQuery(url.Values{}, RoomResource)
	if err != nil {
		t.Fatal(err)
	}
	if q.Page != 1 || q.Limit != DefaultPageLimit || q.Offset() != 0 {
		t.Fatalf("unexpected defaults %+v", q.Pagination())
	}

	q, err = ParseListQuery(url.Values{"page": {"3"}, "limit": {"500"}}, RoomResource)
	if err != nil {
		t.Fatal(err)
	}
	if q.Limit != MaxPageLimit || q.Offset() != 2*MaxPageLimit {
		t.Fatalf("limit must be capped, got limit=%d offset=%d", q.Limit, q.Offset())
	}

	for _, page := range []string{"0", "-1", "x", "100001", "9223372036854775807"} {
		if _, err := ParseListQuery(url.Values{"page": {page}}, RoomResource); KindOf(err) != KindInvalidInput {
			t.Fatalf("page %s: expected invalid input, got %v", page, err)
		}
	}

	q, err = ParseListQuery(url.Values{"page": {"100000"}, "limit": {"100"}}, RoomResource)
	if err != nil {
		t.Fatal(err)
	}
	if q.Offset() <= 0 {
		t.Fatalf("offset overflowed: %d", q.Offset())
	}
}
