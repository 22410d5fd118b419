package store

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"reflect"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "saved.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(0),
		"sqlite": sqlite,
	}
}

func cities(t *testing.T, s Store) []string {
	t.Helper()
	locs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.City)
	}
	return out
}

func TestStoreAddListRemove(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, c := range []string{"Austin", "Dallas", " Houston "} {
				if _, created, err := s.Add(ctx, c); err != nil || !created {
					t.Fatalf("Add(%q) = created %v, err %v", c, created, err)
				}
			}

			if got, want := cities(t, s), []string{"Houston", "Dallas", "Austin"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("List = %v, want %v", got, want)
			}

			first, created, err := s.Add(ctx, "Dallas")
			if err != nil || created {
				t.Fatalf("duplicate Add should be a no-op, created=%v err=%v", created, err)
			}
			if first.City != "Dallas" {
				t.Fatalf("duplicate Add returned %+v", first)
			}
			if got := cities(t, s); len(got) != 3 {
				t.Fatalf("duplicate Add changed list: %v", got)
			}

			// Matching is case-sensitive.
			if err := s.Remove(ctx, "dallas"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for different case, got %v", err)
			}
			if err := s.Remove(ctx, "Dallas"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if err := s.Remove(ctx, "Dallas"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second remove, got %v", err)
			}
			if got, want := cities(t, s), []string{"Houston", "Austin"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("List = %v, want %v", got, want)
			}
		})
	}
}

func TestStoreRejectsBlankNames(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := s.Add(context.Background(), "   "); !errors.Is(err, ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		if _, _, err := s.Add(ctx, c); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if got, want := cities(t, s), []string{"c", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saved.db")

	s, err := NewSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if _, _, err := s.Add(ctx, "Austin"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_ = s.Close()

	s, err = NewSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if got := cities(t, s); !reflect.DeepEqual(got, []string{"Austin"}) {
		t.Fatalf("expected Austin after reopen, got %v", got)
	}
}

func TestNamesAdapter(t *testing.T) {
	ctx := context.Background()
	n := Names{Store: NewMemoryStore(0)}

	if err := n.Add(ctx, "Austin"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := n.Remove(ctx, "Dallas"); err != nil {
		t.Fatalf("removing an absent name should succeed, got %v", err)
	}
	got, err := n.List(ctx)
	if err != nil || !reflect.DeepEqual(got, []string{"Austin"}) {
		t.Fatalf("List = %v, %v", got, err)
	}
}

func TestRebind(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	if got := s.rebind("INSERT INTO t VALUES(?,?,?)"); got != "INSERT INTO t VALUES($1,$2,$3)" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	s.driver = DriverSQLite
	if got := s.rebind("SELECT ?"); got != "SELECT ?" {
		t.Fatalf("sqlite queries must be unchanged, got %s", got)
	}
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn := PostgresDSN("db.local", "5432", "weather", "app@corp", "p@ss/w:rd")

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("DSN %q does not parse: %v", dsn, err)
	}
	pass, _ := u.User.Password()
	if u.User.Username() != "app@corp" || pass != "p@ss/w:rd" {
		t.Fatalf("credentials did not round-trip: %q", dsn)
	}
	if u.Host != "db.local:5432" || u.Path != "/weather" || u.Query().Get("sslmode") != "disable" {
		t.Fatalf("unexpected DSN %q", dsn)
	}
}
