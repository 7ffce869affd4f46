package acl

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func openTemp(t *testing.T, admins ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "acl.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, a := range admins {
		if _, err := s.AddAdmin(a); err != nil {
			t.Fatalf("add admin: %v", err)
		}
	}
	return s
}

func TestOpenCreatesEmptyFile(t *testing.T) {
	s := openTemp(t)
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"admins\": [],\n  \"allowed\": []\n}"
	if string(raw) != want {
		t.Fatalf("file = %q", raw)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("temp file left behind")
	}
}

func TestAddRemoveAllowed(t *testing.T) {
	s := openTemp(t, "100")

	cases := []struct {
		op     func(string) (Result, error)
		id     string
		ok     bool
		reason string
	}{
		{s.AddAllowed, "555", true, ""},
		{s.AddAllowed, "555", false, ReasonAlreadyAllowed},
		{s.AddAllowed, "100", false, ReasonAlreadyAdmin},
		{s.RemoveAllowed, "100", false, ReasonRemoveAdmin},
		{s.RemoveAllowed, "777", false, ReasonNotAllowed},
		{s.RemoveAllowed, "555", true, ""},
		{s.RemoveAllowed, "555", false, ReasonNotAllowed},
	}
	for i, tc := range cases {
		res, err := tc.op(tc.id)
		if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		if res.OK != tc.ok || res.Reason != tc.reason {
			t.Fatalf("#%d %s: got %+v, want ok=%v reason=%q", i, tc.id, res, tc.ok, tc.reason)
		}
	}
}

func TestLookups(t *testing.T) {
	s := openTemp(t, "1")
	_, _ = s.AddAllowed("2")

	if !s.IsAdmin("1") || s.IsAdmin("2") {
		t.Fatal("IsAdmin mismatch")
	}
	if !s.IsAllowed("1") || !s.IsAllowed("2") || s.IsAllowed("3") {
		t.Fatal("IsAllowed mismatch")
	}
	if !s.IsAllowedUser(2) || !s.IsAdminUser(1) {
		t.Fatal("numeric helpers mismatch")
	}
	if s.IsAllowed("abc") {
		t.Fatal("invalid id must not be allowed")
	}
}

func TestExternalEditsAreSeen(t *testing.T) {
	s := openTemp(t)
	data, _ := json.Marshal(List{Admins: []string{"9"}, Allowed: []string{"10"}})
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if !s.IsAdmin("9") || !s.IsAllowed("10") {
		t.Fatal("hand edit not picked up")
	}
}

func TestCorruptFileDeniesAndFailsWrites(t *testing.T) {
	s := openTemp(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s.IsAllowed("1") {
		t.Fatal("corrupt file must deny")
	}
	if _, err := s.AddAllowed("1"); err == nil {
		t.Fatal("expected error on corrupt file")
	}
}

func TestInvalidIDs(t *testing.T) {
	s := openTemp(t)
	for _, id := range []string{"", "abc", "12.5", "-4", "0"} {
		if _, err := s.AddAllowed(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("AddAllowed(%q) err = %v", id, err)
		}
	}
	if got, err := NormalizeID(" 0555 "); err != nil || got != "555" {
		t.Fatalf("NormalizeID = %q, %v", got, err)
	}
}

func TestAddAdminDropsFromAllowed(t *testing.T) {
	s := openTemp(t)
	_, _ = s.AddAllowed("42")
	if res, _ := s.AddAdmin("42"); !res.OK {
		t.Fatalf("AddAdmin = %+v", res)
	}
	allowed, _ := s.ListAllowed()
	admins, _ := s.ListAdmins()
	if len(allowed) != 0 || len(admins) != 1 || admins[0] != "42" {
		t.Fatalf("admins=%v allowed=%v", admins, allowed)
	}
}

func TestListsAreCopies(t *testing.T) {
	s := openTemp(t, "1")
	admins, _ := s.ListAdmins()
	admins[0] = "mutated"
	if !s.IsAdmin("1") {
		t.Fatal("list aliasing leaked into store")
	}
}

func TestAllowListProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	const admin = "1000"
	userIDs := gen.Int64Range(1, 1<<40).Map(func(n int64) string { return strconv.FormatInt(n, 10) })

	properties.Property("adding a non-admin twice reports already allowed", prop.ForAll(
		func(id string) bool {
			if id == admin {
				return true
			}
			s := openTemp(t, admin)
			first, err1 := s.AddAllowed(id)
			second, err2 := s.AddAllowed(id)
			return err1 == nil && err2 == nil && first.OK &&
				!second.OK && second.Reason == ReasonAlreadyAllowed
		},
		userIDs,
	))

	properties.Property("admins are never added to allowed", prop.ForAll(
		func(id string) bool {
			s := openTemp(t, id)
			res, err := s.AddAllowed(id)
			allowed, _ := s.ListAllowed()
			return err == nil && !res.OK && res.Reason == ReasonAlreadyAdmin && len(allowed) == 0
		},
		userIDs,
	))

	properties.Property("removing an admin always fails", prop.ForAll(
		func(id string, wasAllowed bool) bool {
			s := openTemp(t)
			if wasAllowed {
				_, _ = s.AddAllowed(id)
			}
			_, _ = s.AddAdmin(id)
			res, err := s.RemoveAllowed(id)
			return err == nil && !res.OK && res.Reason == ReasonRemoveAdmin
		},
		userIDs, gen.Bool(),
	))

	properties.TestingRun(t)
}
