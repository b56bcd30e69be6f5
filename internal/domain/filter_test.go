package domain_test

import (
	"testing"
	"time"

	"github.com/bazarpepe/orders/internal/domain"
)

func statusPtr(s domain.OrderStatus) *domain.OrderStatus { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func makeItem(id string, status domain.OrderStatus, createdAt time.Time) domain.OrderItem {
	return domain.OrderItem{
		ID:         id,
		OrderID:    "order-1",
		ProductID:  "product-1",
		UserID:     "user-1",
		Qty:        1,
		PriceMinor: 100,
		Status:     status,
		CreatedAt:  createdAt,
	}
}

func TestItemFilter_EmptyMatchesEverything(t *testing.T) {
	filter := domain.ItemFilter{}
	if !filter.IsEmpty() {
		t.Fatal("expected empty filter")
	}

	item := makeItem("item-1", domain.StatusCancelled, time.Now().UTC())
	if !filter.Matches(item) {
		t.Fatal("empty filter must match any item")
	}
}

func TestItemFilter_Status(t *testing.T) {
	now := time.Now().UTC()
	filter := domain.ItemFilter{Status: statusPtr(domain.StatusCancelled)}

	if !filter.Matches(makeItem("a", domain.StatusCancelled, now)) {
		t.Fatal("expected cancelled item to match")
	}
	if filter.Matches(makeItem("b", domain.StatusPending, now)) {
		t.Fatal("expected pending item to be rejected")
	}
}

func TestItemFilter_CreatedRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := base.Add(-time.Hour)
	inside := base.Add(30 * time.Minute)
	after := base.Add(2 * time.Hour)
	to := base.Add(time.Hour)

	cases := []struct {
		name   string
		filter domain.ItemFilter
		at     time.Time
		want   bool
	}{
		{name: "both bounds inside", filter: domain.ItemFilter{CreatedFrom: timePtr(base), CreatedTo: timePtr(to)}, at: inside, want: true},
		{name: "both bounds lower edge", filter: domain.ItemFilter{CreatedFrom: timePtr(base), CreatedTo: timePtr(to)}, at: base, want: true},
		{name: "both bounds upper edge", filter: domain.ItemFilter{CreatedFrom: timePtr(base), CreatedTo: timePtr(to)}, at: to, want: true},
		{name: "both bounds before", filter: domain.ItemFilter{CreatedFrom: timePtr(base), CreatedTo: timePtr(to)}, at: before, want: false},
		{name: "both bounds after", filter: domain.ItemFilter{CreatedFrom: timePtr(base), CreatedTo: timePtr(to)}, at: after, want: false},
		{name: "start only ge", filter: domain.ItemFilter{CreatedFrom: timePtr(base)}, at: after, want: true},
		{name: "start only lt", filter: domain.ItemFilter{CreatedFrom: timePtr(base)}, at: before, want: false},
		{name: "end only le", filter: domain.ItemFilter{CreatedTo: timePtr(base)}, at: before, want: true},
		{name: "end only gt", filter: domain.ItemFilter{CreatedTo: timePtr(base)}, at: after, want: false},
		{name: "no bounds", filter: domain.ItemFilter{}, at: after, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := makeItem("item-1", domain.StatusPending, tc.at)
			if got := tc.filter.Matches(item); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestItemFilter_Intersection(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	filter := domain.ItemFilter{
		Status:      statusPtr(domain.StatusShipped),
		CreatedFrom: timePtr(base),
		CreatedTo:   timePtr(base.Add(time.Hour)),
	}

	// Внутри диапазона и со статусом — совпадает.
	if !filter.Matches(makeItem("a", domain.StatusShipped, base.Add(time.Minute))) {
		t.Fatal("expected match inside intersection")
	}
	// Статус совпадает, но вне диапазона.
	if filter.Matches(makeItem("b", domain.StatusShipped, base.Add(2*time.Hour))) {
		t.Fatal("expected rejection outside time range")
	}
	// Диапазон совпадает, но статус другой.
	if filter.Matches(makeItem("c", domain.StatusPending, base.Add(time.Minute))) {
		t.Fatal("expected rejection for wrong status")
	}
}

func TestItemFilter_ItemID(t *testing.T) {
	now := time.Now().UTC()
	filter := domain.ItemFilter{ItemID: "item-42"}

	if !filter.Matches(makeItem("item-42", domain.StatusPending, now)) {
		t.Fatal("expected matching id to pass")
	}
	if filter.Matches(makeItem("item-7", domain.StatusPending, now)) {
		t.Fatal("expected other id to be rejected")
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	page := domain.PageRequest{Page: -1, Size: 0, SortBy: "drop table"}.Normalize()

	if page.Page != 0 {
		t.Fatalf("expected page 0, got %d", page.Page)
	}
	if page.Size != 20 {
		t.Fatalf("expected default size 20, got %d", page.Size)
	}
	if page.SortBy != domain.SortByCreatedAt || !page.SortDesc {
		t.Fatalf("expected fallback sort created_at desc, got %s desc=%v", page.SortBy, page.SortDesc)
	}

	kept := domain.PageRequest{Page: 2, Size: 50, SortBy: domain.SortByPrice}.Normalize()
	if kept.Page != 2 || kept.Size != 50 || kept.SortBy != domain.SortByPrice || kept.SortDesc {
		t.Fatalf("expected explicit parameters to survive, got %+v", kept)
	}
	if kept.Offset() != 100 {
		t.Fatalf("expected offset 100, got %d", kept.Offset())
	}
}

func TestNewItemPage(t *testing.T) {
	page := domain.NewItemPage(nil, 41, 20)
	if page.TotalPages != 3 {
		t.Fatalf("expected 3 pages for 41/20, got %d", page.TotalPages)
	}
	if page.TotalElements != 41 {
		t.Fatalf("expected 41 elements, got %d", page.TotalElements)
	}

	empty := domain.NewItemPage(nil, 0, 20)
	if empty.TotalPages != 0 {
		t.Fatalf("expected 0 pages for empty result, got %d", empty.TotalPages)
	}
}
