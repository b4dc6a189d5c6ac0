package utils

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit well inside an int.
	MaxPage = 100000
)

// Resource describes which query keys may filter or sort a listing and the
// column each key maps to.
type Resource struct {
	Name       string
	Fields     map[string]string
	Searchable []string
}

var RoomResource = Resource{
	Name: "rooms",
	Fields: map[string]string{
		"name":          "name",
		"description":   "description",
		"roomType":      "room_type",
		"availability":  "availability",
		"pricePerNight": "price_per_night",
		"capacity":      "capacity",
		"hotelId":       "hotel_id",
		"createdAt":     "created_at",
	},
	Searchable: []string{"name", "description"},
}

var BookingResource = Resource{
	Name: "bookings",
	Fields: map[string]string{
		"userId":        "user_id",
		"roomId":        "room_id",
		"status":        "status",
		"paymentStatus": "payment_status",
		"paymentMethod": "payment_method",
		"checkInDate":   "check_in_date",
		"checkOutDate":  "check_out_date",
		"totalPrice":    "total_price",
		"createdAt":     "created_at",
	},
}

var reservedKeys = map[string]bool{"page": true, "sort": true, "limit": true, "keyword": true}

var operators = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

type Condition struct {
	Field  string
	Column string
	Op     string
	Value  string
}

type SortField struct {
	Field  string
	Column string
	Desc   bool
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type ListQuery struct {
	Conditions []Condition
	Keyword    string
	Searchable []string
	Sort       []SortField
	Page       int
	Limit      int
}

// ParseListQuery turns `field=v`, `field[gte]=v`, `keyword`, `sort=a,-b`, `page` and
// `limit` into a ListQuery. Keys outside the resource's allow-list are ignored.
func ParseListQuery(values url.Values, res Resource) (ListQuery, error) {
	q := ListQuery{
		Page:       1,
		Limit:      DefaultPageLimit,
		Searchable: res.Searchable,
		Keyword:    strings.TrimSpace(values.Get("keyword")),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reservedKeys[key] {
			continue
		}
		field, op := key, "="
		if i := strings.Index(key, "["); i > 0 && strings.HasSuffix(key, "]") {
			field = key[:i]
			raw := key[i+1 : len(key)-1]
			mapped, ok := operators[raw]
			if !ok {
				return q, InvalidInput("Unsupported filter operator %q on %s", raw, field)
			}
			op = mapped
		}
		column, ok := res.Fields[field]
		if !ok {
			continue
		}
		q.Conditions = append(q.Conditions, Condition{Field: field, Column: column, Op: op, Value: values.Get(key)})
	}

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			desc := strings.HasPrefix(part, "-")
			part = strings.TrimPrefix(part, "-")
			column, ok := res.Fields[part]
			if !ok {
				continue
			}
			q.Sort = append(q.Sort, SortField{Field: part, Column: column, Desc: desc})
		}
	}
	if len(q.Sort) == 0 {
		q.Sort = []SortField{{Field: "createdAt", Column: "created_at", Desc: true}}
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, InvalidInput("page must be a positive integer")
		}
		if page > MaxPage {
			return q, InvalidInput("page must not exceed %d", MaxPage)
		}
		q.Page = page
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, InvalidInput("limit must be a positive integer")
		}
		q.Limit = limit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q, nil
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func (q ListQuery) Pagination() Pagination {
	return Pagination{Page: q.Page, Limit: q.Limit}
}
