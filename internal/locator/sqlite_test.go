package locator

import (
	"context"
	"testing"
	"time"

	"github.com/mwrobel/domo/internal/db"
	"github.com/mwrobel/domo/internal/nlu"
)

// fixedNow is a Friday; "wtorek" resolves to 2025-06-10.
var fixedNow = time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	s := NewStore(d)
	s.now = func() time.Time { return fixedNow }
	return s
}

func seedTrip(t *testing.T, s *Store, store, date string, products ...string) int64 {
	t.Helper()
	res, err := s.db.Exec(
		"INSERT INTO shopping_trips (store_name, trip_date, total_amount) VALUES (?, ?, 0)",
		store, date)
	if err != nil {
		t.Fatalf("seeding trip: %v", err)
	}
	id, _ := res.LastInsertId()
	for _, p := range products {
		if _, err := s.db.Exec(
			"INSERT INTO products (trip_id, name, quantity, unit_price, total_price) VALUES (?, ?, 1, 4.50, 4.50)",
			id, p); err != nil {
			t.Fatalf("seeding product: %v", err)
		}
	}
	return id
}

func TestParseHumanDate(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"dzisiaj", "2025-06-13", true},
		{"wczoraj", "2025-06-12", true},
		{"przedwczoraj", "2025-06-11", true},
		{"wtorek", "2025-06-10", true},
		{"w zeszły wtorek", "2025-06-10", true},
		{"piątek", "2025-06-06", true}, // same weekday goes back a full week
		{"10 czerwca", "2025-06-10", true},
		{"paragon z 10 czerwca", "2025-06-10", true},
		{"", "", false},
		{"kiedyś", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseHumanDate(tt.text, fixedNow)
		if ok != tt.ok {
			t.Errorf("ParseHumanDate(%q) ok = %t, want %t", tt.text, ok, tt.ok)
			continue
		}
		if ok && got.Format(dateLayout) != tt.want {
			t.Errorf("ParseHumanDate(%q) = %s, want %s", tt.text, got.Format(dateLayout), tt.want)
		}
	}
}

func receiptEntities(date, store, order string) map[string]nlu.Value {
	obj := map[string]nlu.Value{}
	if date != "" {
		obj["data"] = nlu.String(date)
	}
	if store != "" {
		obj["sklep"] = nlu.String(store)
	}
	if order != "" {
		obj["kolejnosc"] = nlu.String(order)
	}
	return map[string]nlu.Value{"paragon_identyfikator": nlu.Object(obj)}
}

func TestFindTripsByDate(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-10")
	seedTrip(t, s, "Żabka", "2025-06-10")
	seedTrip(t, s, "Biedronka", "2025-06-12")

	got, err := s.FindCandidates(context.Background(), nlu.IntentDeletePurchase,
		receiptEntities("wtorek", "", ""))
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Label != "Paragon ze sklepu 'Lidl' z dnia 2025-06-10." {
		t.Errorf("unexpected label %q", got[0].Label)
	}
	if got[0].Kind != KindTrip {
		t.Errorf("expected kind %q, got %q", KindTrip, got[0].Kind)
	}
}

func TestFindTripsOrderingIsStable(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-12")
	seedTrip(t, s, "Żabka", "2025-06-10")
	seedTrip(t, s, "Biedronka", "2025-06-11")

	first, err := s.FindCandidates(context.Background(), nlu.IntentDeletePurchase,
		map[string]nlu.Value{})
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	second, _ := s.FindCandidates(context.Background(), nlu.IntentDeletePurchase,
		map[string]nlu.Value{})

	if len(first) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(first))
	}
	// Ordered by trip date, then id.
	if first[0].Label != "Paragon ze sklepu 'Żabka' z dnia 2025-06-10." {
		t.Errorf("unexpected first candidate %q", first[0].Label)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering not reproducible at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestFindTripsLastOnly(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-10")
	last := seedTrip(t, s, "Żabka", "2025-06-08")

	got, err := s.FindCandidates(context.Background(), nlu.IntentUpdatePurchase,
		receiptEntities("", "", "ostatni"))
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != last {
		t.Fatalf("expected only the most recent trip %d, got %v", last, got)
	}
}

func TestFindProductsByName(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-10", "mleko", "chleb")
	seedTrip(t, s, "Żabka", "2025-06-12", "Mleko UHT")

	entities := map[string]nlu.Value{
		"produkt_identyfikator": nlu.Object(map[string]nlu.Value{"nazwa": nlu.String("mleko")}),
	}
	got, err := s.FindCandidates(context.Background(), nlu.IntentDeleteItem, entities)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
	if got[0].Label != "Produkt 'mleko' w cenie 4.50 zł." {
		t.Errorf("unexpected label %q", got[0].Label)
	}
	if got[0].Kind != KindProduct {
		t.Errorf("expected kind %q, got %q", KindProduct, got[0].Kind)
	}
}

func TestExecuteDeletePurchase(t *testing.T) {
	s := newTestStore(t)
	id := seedTrip(t, s, "Lidl", "2025-06-10", "mleko")

	target := Candidate{ID: id, Kind: KindTrip}
	if err := s.ExecuteAction(context.Background(), nlu.IntentDeletePurchase, target, nil); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	var trips, products int
	s.db.QueryRow("SELECT COUNT(*) FROM shopping_trips").Scan(&trips)
	s.db.QueryRow("SELECT COUNT(*) FROM products").Scan(&products)
	if trips != 0 {
		t.Errorf("expected 0 trips, got %d", trips)
	}
	// Products cascade with their trip.
	if products != 0 {
		t.Errorf("expected 0 products, got %d", products)
	}
}

func TestExecuteDeleteTargetsOnlyChosenCandidate(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-10")
	chosen := seedTrip(t, s, "Żabka", "2025-06-10")
	seedTrip(t, s, "Biedronka", "2025-06-10")

	target := Candidate{ID: chosen, Kind: KindTrip}
	if err := s.ExecuteAction(context.Background(), nlu.IntentDeletePurchase, target, nil); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	var remaining int
	s.db.QueryRow("SELECT COUNT(*) FROM shopping_trips").Scan(&remaining)
	if remaining != 2 {
		t.Errorf("expected 2 remaining trips, got %d", remaining)
	}
	var gone int
	s.db.QueryRow("SELECT COUNT(*) FROM shopping_trips WHERE id = ?", chosen).Scan(&gone)
	if gone != 0 {
		t.Error("chosen trip still present")
	}
}

func TestExecuteUpdateItem(t *testing.T) {
	s := newTestStore(t)
	seedTrip(t, s, "Lidl", "2025-06-10", "chleb")
	var productID int64
	s.db.QueryRow("SELECT id FROM products WHERE name = 'chleb'").Scan(&productID)

	entities := map[string]nlu.Value{
		"operacje": nlu.List(nlu.Object(map[string]nlu.Value{
			"pole_do_zmiany": nlu.String("cena_jednostkowa"),
			"nowa_wartosc":   nlu.Number(5.50),
		})),
	}
	target := Candidate{ID: productID, Kind: KindProduct}
	if err := s.ExecuteAction(context.Background(), nlu.IntentUpdateItem, target, entities); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	var price float64
	s.db.QueryRow("SELECT unit_price FROM products WHERE id = ?", productID).Scan(&price)
	if price != 5.50 {
		t.Errorf("expected price 5.50, got %v", price)
	}
}

func TestExecuteUpdateRejectsUnknownField(t *testing.T) {
	s := newTestStore(t)
	id := seedTrip(t, s, "Lidl", "2025-06-10")

	entities := map[string]nlu.Value{
		"operacje": nlu.List(nlu.Object(map[string]nlu.Value{
			"pole_do_zmiany": nlu.String("nieznane_pole"),
			"nowa_wartosc":   nlu.String("x"),
		})),
	}
	target := Candidate{ID: id, Kind: KindTrip}
	if err := s.ExecuteAction(context.Background(), nlu.IntentUpdatePurchase, target, entities); err == nil {
		t.Fatal("expected error for unmappable field")
	}

	// The row must be untouched.
	var store string
	s.db.QueryRow("SELECT store_name FROM shopping_trips WHERE id = ?", id).Scan(&store)
	if store != "Lidl" {
		t.Errorf("row mutated on failed update: %q", store)
	}
}

func TestExecuteUpdateWithoutOperations(t *testing.T) {
	s := newTestStore(t)
	id := seedTrip(t, s, "Lidl", "2025-06-10")

	target := Candidate{ID: id, Kind: KindTrip}
	err := s.ExecuteAction(context.Background(), nlu.IntentUpdatePurchase, target, map[string]nlu.Value{})
	if err != ErrNoOperations {
		t.Fatalf("expected ErrNoOperations, got %v", err)
	}
}

func TestCreatePurchase(t *testing.T) {
	s := newTestStore(t)

	entities := map[string]nlu.Value{
		"paragon_info": nlu.Object(map[string]nlu.Value{
			"sklep": nlu.String("Biedronka"),
			"data":  nlu.String("wczoraj"),
		}),
		"produkty": nlu.List(
			nlu.Object(map[string]nlu.Value{
				"nazwa_artykulu":   nlu.String("mleko"),
				"ilosc":            nlu.Number(2),
				"cena_jednostkowa": nlu.Number(4.50),
				"cena_calkowita":   nlu.Number(9.00),
			}),
			nlu.Object(map[string]nlu.Value{
				"nazwa_artykulu":   nlu.String("chleb"),
				"ilosc":            nlu.Number(1),
				"cena_jednostkowa": nlu.Number(5.00),
				"cena_calkowita":   nlu.Number(5.00),
			}),
		),
	}
	if err := s.CreatePurchase(context.Background(), entities); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	var store, date string
	var total float64
	err := s.db.QueryRow("SELECT store_name, trip_date, total_amount FROM shopping_trips").Scan(&store, &date, &total)
	if err != nil {
		t.Fatalf("reading trip: %v", err)
	}
	if store != "Biedronka" || date != "2025-06-12" || total != 14.00 {
		t.Errorf("unexpected trip %s/%s/%v", store, date, total)
	}
	var products int
	s.db.QueryRow("SELECT COUNT(*) FROM products").Scan(&products)
	if products != 2 {
		t.Errorf("expected 2 products, got %d", products)
	}
}

func TestSpendingSummary(t *testing.T) {
	s := newTestStore(t)
	id1 := seedTrip(t, s, "Lidl", "2025-06-10")
	id2 := seedTrip(t, s, "Biedronka", "2025-06-11")
	s.db.Exec("UPDATE shopping_trips SET total_amount = 20 WHERE id = ?", id1)
	s.db.Exec("UPDATE shopping_trips SET total_amount = 35 WHERE id = ?", id2)

	summary, err := s.SpendingSummary(context.Background(), map[string]nlu.Value{})
	if err != nil {
		t.Fatalf("SpendingSummary: %v", err)
	}
	want := "Podsumowanie wydatków:\n- Biedronka: 35.00 zł\n- Lidl: 20.00 zł\nŁącznie: 55.00 zł"
	if summary != want {
		t.Errorf("unexpected summary:\n%s\nwant:\n%s", summary, want)
	}
}

func TestSpendingSummaryEmpty(t *testing.T) {
	s := newTestStore(t)
	summary, err := s.SpendingSummary(context.Background(), map[string]nlu.Value{})
	if err != nil {
		t.Fatalf("SpendingSummary: %v", err)
	}
	if summary != "Nie masz jeszcze żadnych zapisanych wydatków." {
		t.Errorf("unexpected summary %q", summary)
	}
}
