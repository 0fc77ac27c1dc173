package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwrobel/domo/internal/db"
	"github.com/mwrobel/domo/internal/nlu"
)

const dateLayout = "2006-01-02"

// Field names as they arrive from entity extraction, mapped to columns.
var tripFields = map[string]string{
	"sklep":             "store_name",
	"data_zakupow":      "trip_date",
	"kwota_per_paragon": "total_amount",
}

var productFields = map[string]string{
	"nazwa_artykulu":    "name",
	"ilosc":             "quantity",
	"cena_jednostkowa":  "unit_price",
	"cena_calkowita":    "total_price",
}

// Store is the SQLite-backed Locator implementation.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a locator over the given database.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: time.Now}
}

// FindCandidates implements Locator. Unknown intents yield no candidates.
func (s *Store) FindCandidates(ctx context.Context, intentType string, entities map[string]nlu.Value) ([]Candidate, error) {
	switch intentType {
	case nlu.IntentUpdatePurchase, nlu.IntentDeletePurchase:
		return s.findTrips(ctx, entities)
	case nlu.IntentUpdateItem, nlu.IntentDeleteItem:
		return s.findProducts(ctx, entities)
	}
	return nil, nil
}

func (s *Store) findTrips(ctx context.Context, entities map[string]nlu.Value) ([]Candidate, error) {
	query := "SELECT id, store_name, trip_date FROM shopping_trips"
	var conds []string
	var args []any

	receipt := objectField(entities, "paragon_identyfikator")
	if dateStr := stringField(receipt, "data"); dateStr != "" {
		if d, ok := ParseHumanDate(dateStr, s.now()); ok {
			conds = append(conds, "trip_date = ?")
			args = append(args, d.Format(dateLayout))
		}
	}
	if store := stringField(receipt, "sklep"); store != "" {
		conds = append(conds, "LOWER(store_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(store)+"%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if stringField(receipt, "kolejnosc") == "ostatni" {
		query += " ORDER BY id DESC LIMIT 1"
	} else {
		query += " ORDER BY trip_date, id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var id int64
		var store, date string
		if err := rows.Scan(&id, &store, &date); err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		out = append(out, Candidate{
			ID:    id,
			Kind:  KindTrip,
			Label: fmt.Sprintf("Paragon ze sklepu '%s' z dnia %s.", store, date),
		})
	}
	return out, rows.Err()
}

func (s *Store) findProducts(ctx context.Context, entities map[string]nlu.Value) ([]Candidate, error) {
	trips, err := s.findTrips(ctx, entities)
	if err != nil || len(trips) == 0 {
		return nil, err
	}

	product := objectField(entities, "produkt_identyfikator")
	name := stringField(product, "nazwa")

	var out []Candidate
	// Per trip, preserving trip order, so enumeration is reproducible.
	for _, trip := range trips {
		query := "SELECT id, name, unit_price FROM products WHERE trip_id = ?"
		args := []any{trip.ID}
		if name != "" {
			query += " AND LOWER(name) LIKE ?"
			args = append(args, "%"+strings.ToLower(name)+"%")
		}
		query += " ORDER BY id"

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("querying products: %w", err)
		}
		for rows.Next() {
			var id int64
			var pname string
			var price float64
			if err := rows.Scan(&id, &pname, &price); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning product: %w", err)
			}
			out = append(out, Candidate{
				ID:    id,
				Kind:  KindProduct,
				Label: fmt.Sprintf("Produkt '%s' w cenie %.2f zł.", pname, price),
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// ExecuteAction implements Locator.
func (s *Store) ExecuteAction(ctx context.Context, intentType string, target Candidate, entities map[string]nlu.Value) error {
	switch intentType {
	case nlu.IntentDeletePurchase:
		return s.deleteRow(ctx, target, KindTrip, "shopping_trips")
	case nlu.IntentDeleteItem:
		return s.deleteRow(ctx, target, KindProduct, "products")
	case nlu.IntentUpdatePurchase:
		return s.updateRow(ctx, target, KindTrip, "shopping_trips", tripFields, entities)
	case nlu.IntentUpdateItem:
		return s.updateRow(ctx, target, KindProduct, "products", productFields, entities)
	}
	return fmt.Errorf("locator: no action for intent %q", intentType)
}

func (s *Store) deleteRow(ctx context.Context, target Candidate, wantKind, table string) error {
	if target.Kind != wantKind {
		return fmt.Errorf("locator: target kind %q, want %q", target.Kind, wantKind)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", target.ID)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("locator: %s %d not found", target.Kind, target.ID)
	}
	return nil
}

func (s *Store) updateRow(ctx context.Context, target Candidate, wantKind, table string, fields map[string]string, entities map[string]nlu.Value) error {
	if target.Kind != wantKind {
		return fmt.Errorf("locator: target kind %q, want %q", target.Kind, wantKind)
	}
	ops, ok := entities["operacje"].AsList()
	if !ok || len(ops) == 0 {
		return ErrNoOperations
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		obj, ok := op.AsObject()
		if !ok {
			return fmt.Errorf("locator: malformed operation")
		}
		field, _ := obj["pole_do_zmiany"].AsString()
		column, ok := fields[field]
		if !ok {
			return fmt.Errorf("locator: field %q not updatable on %s", field, target.Kind)
		}
		value := sqlValue(obj["nowa_wartosc"], column, s.now())
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET "+column+" = ? WHERE id = ?", value, target.ID); err != nil {
			return fmt.Errorf("updating %s.%s: %w", table, column, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return nil
}

// CreatePurchase implements Locator.
func (s *Store) CreatePurchase(ctx context.Context, entities map[string]nlu.Value) error {
	info := objectField(entities, "paragon_info")
	store := stringField(info, "sklep")
	dateStr := stringField(info, "data")
	if dateStr == "" {
		dateStr = "dzisiaj"
	}
	tripDate, ok := ParseHumanDate(dateStr, s.now())
	if !ok {
		tripDate = s.now()
	}

	products, _ := entities["produkty"].AsList()
	total := 0.0
	for _, p := range products {
		if obj, ok := p.AsObject(); ok {
			if v, ok := obj["cena_calkowita"].AsNumber(); ok {
				total += v
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO shopping_trips (store_name, trip_date, total_amount) VALUES (?, ?, ?)",
		store, tripDate.Format(dateLayout), total)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	tripID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading trip id: %w", err)
	}

	for _, p := range products {
		obj, ok := p.AsObject()
		if !ok {
			continue
		}
		name, _ := obj["nazwa_artykulu"].AsString()
		quantity, _ := obj["ilosc"].AsNumber()
		if quantity == 0 {
			quantity = 1
		}
		unitPrice, _ := obj["cena_jednostkowa"].AsNumber()
		totalPrice, _ := obj["cena_calkowita"].AsNumber()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO products (trip_id, name, quantity, unit_price, total_price) VALUES (?, ?, ?, ?, ?)",
			tripID, name, quantity, unitPrice, totalPrice); err != nil {
			return fmt.Errorf("inserting product %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing purchase: %w", err)
	}
	return nil
}

// SpendingSummary aggregates spending per store, optionally limited to the
// current month when the extracted filters ask for it.
func (s *Store) SpendingSummary(ctx context.Context, entities map[string]nlu.Value) (string, error) {
	query := "SELECT store_name, SUM(total_amount) FROM shopping_trips"
	var args []any
	if filtersWantThisMonth(entities) {
		now := s.now()
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		query += " WHERE trip_date >= ?"
		args = append(args, firstOfMonth.Format(dateLayout))
	}
	query += " GROUP BY store_name ORDER BY SUM(total_amount) DESC, store_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	sb.WriteString("Podsumowanie wydatków:\n")
	total := 0.0
	found := false
	for rows.Next() {
		var store string
		var sum float64
		if err := rows.Scan(&store, &sum); err != nil {
			return "", fmt.Errorf("scanning summary: %w", err)
		}
		fmt.Fprintf(&sb, "- %s: %.2f zł\n", store, sum)
		total += sum
		found = true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return "Nie masz jeszcze żadnych zapisanych wydatków.", nil
	}
	fmt.Fprintf(&sb, "Łącznie: %.2f zł", total)
	return sb.String(), nil
}

func filtersWantThisMonth(entities map[string]nlu.Value) bool {
	filters, ok := entities["filtry"].AsList()
	if !ok {
		return false
	}
	for _, f := range filters {
		obj, ok := f.AsObject()
		if !ok {
			continue
		}
		if op, _ := obj["operator"].AsString(); op == "w_tym_miesiacu" {
			return true
		}
	}
	return false
}

// objectField returns a nested entity object, or an empty map.
func objectField(entities map[string]nlu.Value, key string) map[string]nlu.Value {
	if obj, ok := entities[key].AsObject(); ok {
		return obj
	}
	return map[string]nlu.Value{}
}

// stringField returns a string field of an entity object, or "".
func stringField(obj map[string]nlu.Value, key string) string {
	s, _ := obj[key].AsString()
	return s
}

// sqlValue converts an extracted value to a database argument. Date-valued
// columns get human date phrases resolved to calendar dates.
func sqlValue(v nlu.Value, column string, now time.Time) any {
	switch v.Kind() {
	case nlu.KindString:
		s, _ := v.AsString()
		if column == "trip_date" {
			if d, ok := ParseHumanDate(s, now); ok {
				return d.Format(dateLayout)
			}
		}
		return s
	case nlu.KindNumber:
		n, _ := v.AsNumber()
		return n
	case nlu.KindBool:
		b, _ := v.AsBool()
		return b
	default:
		return nil
	}
}
