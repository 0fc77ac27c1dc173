package db

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by querying each one.
	tables := []string{
		"shopping_trips", "products", "chat_sessions", "chat_messages",
	}

	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys pragma = %d, want 1", fk)
	}

	// Orphaned rows must be rejected, and cascades must fire.
	if _, err := d.Exec("INSERT INTO products (trip_id, name) VALUES (999, 'mleko')"); err == nil {
		t.Fatal("expected foreign key violation for orphan product")
	}

	res, err := d.Exec("INSERT INTO shopping_trips (store_name, trip_date) VALUES ('Lidl', '2026-08-29')")
	if err != nil {
		t.Fatalf("inserting trip: %v", err)
	}
	tripID, _ := res.LastInsertId()
	if _, err := d.Exec("INSERT INTO products (trip_id, name) VALUES (?, 'mleko')", tripID); err != nil {
		t.Fatalf("inserting product: %v", err)
	}
	if _, err := d.Exec("DELETE FROM shopping_trips WHERE id = ?", tripID); err != nil {
		t.Fatalf("deleting trip: %v", err)
	}
	var n int
	if err := d.QueryRow("SELECT COUNT(*) FROM products WHERE trip_id = ?", tripID).Scan(&n); err != nil {
		t.Fatalf("counting products: %v", err)
	}
	if n != 0 {
		t.Fatalf("products after cascade = %d, want 0", n)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}
