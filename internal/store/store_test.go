package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/model"
)

// createTestStore opens an empty store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range model.SetNames() {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_MigrationIndexes(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_orders_customer'").Scan(&name)
	if err != nil {
		t.Fatalf("index missing: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(MemoryDSN, WithDriver("postgres"))
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestSeed_LoadsFixture(t *testing.T) {
	for _, driver := range []string{DriverCGo, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			s := createTestStore(t, WithDriver(driver))
			ctx := context.Background()
			d := fixture.Northwind()

			if err := s.Seed(ctx, d); err != nil {
				t.Fatalf("Seed() failed: %v", err)
			}

			counts, err := s.Counts(ctx)
			if err != nil {
				t.Fatalf("Counts() failed: %v", err)
			}
			want := map[string]int64{
				model.SetCustomers:    fixture.CustomerCount,
				model.SetEmployees:    fixture.EmployeeCount,
				model.SetProducts:     fixture.ProductCount,
				model.SetOrders:       fixture.OrderCount,
				model.SetOrderDetails: int64(len(d.OrderDetails)),
			}
			for set, n := range want {
				if counts[set] != n {
					t.Errorf("%s: got %d rows, want %d", set, counts[set], n)
				}
			}
			if s.Driver() != driver {
				t.Errorf("Driver() = %q", s.Driver())
			}
		})
	}
}

func TestSeed_RefusesSecondSeed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Seed(ctx, fixture.Northwind()); err != nil {
		t.Fatalf("first Seed() failed: %v", err)
	}
	if err := s.Seed(ctx, fixture.Northwind()); !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("second Seed() error = %v, want ErrAlreadySeeded", err)
	}
}

func TestSeed_AtomicOnForeignKeyViolation(t *testing.T) {
	s := createTestStore(t)
	d := fixture.Northwind()
	missing := "NOPE!"
	d.Orders[0].CustomerID = &missing

	if err := s.Seed(context.Background(), d); err == nil {
		t.Fatal("Seed() succeeded with a dangling customer reference")
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rolled back seed left %d customers", n)
	}
}

func TestScanEntity_RoundTrip(t *testing.T) {
	for _, driver := range []string{DriverCGo, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			s := createTestStore(t, WithDriver(driver))
			ctx := context.Background()
			if err := s.Seed(ctx, fixture.Northwind()); err != nil {
				t.Fatal(err)
			}

			typ := model.Types[model.SetProducts]
			rows, err := s.Query(ctx, "SELECT product_id, product_name, unit_price, units_in_stock, discontinued FROM products WHERE product_id = ?", 10)
			if err != nil {
				t.Fatal(err)
			}
			defer rows.Close()

			if !rows.Next() {
				t.Fatal("no row")
			}
			e, err := ScanEntity(rows, typ)
			if err != nil {
				t.Fatal(err)
			}
			p := e.(*model.Product)
			if p.ProductID != 10 || !p.Discontinued {
				t.Errorf("got %+v", p)
			}
		})
	}
}

func TestScanAggregate_Null(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows, err := s.Query(ctx, "SELECT MAX(freight) FROM orders")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	v, err := ScanAggregate(rows)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("MAX over empty table = %d, want NULL", *v)
	}
}

func TestScanAggregate_Value(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows, err := s.Query(ctx, "SELECT COUNT(*) FROM orders")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	v, err := ScanAggregate(rows)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != 0 {
		t.Errorf("COUNT = %v, want 0", v)
	}
}
