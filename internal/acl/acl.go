// Package acl keeps the bot's access list: a JSON file with two disjoint
// sets of Telegram user ids, admins and allowed users.
//
// The file is re-read on every lookup so edits made by hand take effect
// immediately. Writes go to "<path>.tmp" first and are renamed into place.
package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/m3rciful/formbot/core/logger"
)

// Reasons reported when a change is refused.
const (
	ReasonAlreadyAdmin   = "User is already an admin."
	ReasonAlreadyAllowed = "User already allowed."
	ReasonRemoveAdmin    = "Cannot remove an admin."
	ReasonNotAllowed     = "User was not allowed."
)

// ErrInvalidID is returned for ids that are not positive decimal integers.
var ErrInvalidID = errors.New("acl: user id must be a positive decimal integer")

// List is the on-disk document.
type List struct {
	Admins  []string `json:"admins"`
	Allowed []string `json:"allowed"`
}

// Result describes the outcome of AddAllowed and RemoveAllowed.
type Result struct {
	OK     bool
	Reason string
}

// Store reads and writes the access list file.
// The mutex serializes load-mutate-save within one process only.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a Store for path, creating an empty list file when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("acl: empty path")
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("acl: create dir: %w", err)
			}
		}
		if err := s.save(List{}); err != nil {
			return nil, err
		}
		logger.Info(context.Background(), logger.CompACL, "acl.init", slog.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("acl: stat: %w", err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// NormalizeID validates id and returns its canonical decimal form.
func NormalizeID(id string) (string, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return strconv.FormatInt(n, 10), nil
}

func (s *Store) load() (List, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return List{Admins: []string{}, Allowed: []string{}}, nil
	}
	if err != nil {
		return List{}, fmt.Errorf("acl: read: %w", err)
	}
	var l List
	if err := json.Unmarshal(raw, &l); err != nil {
		return List{}, fmt.Errorf("acl: parse %s: %w", s.path, err)
	}
	if l.Admins == nil {
		l.Admins = []string{}
	}
	if l.Allowed == nil {
		l.Allowed = []string{}
	}
	return l, nil
}

func (s *Store) save(l List) error {
	if l.Admins == nil {
		l.Admins = []string{}
	}
	if l.Allowed == nil {
		l.Allowed = []string{}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("acl: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("acl: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("acl: replace: %w", err)
	}
	return nil
}

// lookup loads the list for a read-only check; failures count as "not listed".
func (s *Store) lookup(id string) (List, string, bool) {
	norm, err := NormalizeID(id)
	if err != nil {
		return List{}, "", false
	}
	l, err := s.load()
	if err != nil {
		logger.Error(context.Background(), logger.CompACL, "acl.load", slog.String("status", "fail"), logger.Err(err))
		return List{}, "", false
	}
	return l, norm, true
}

// IsAdmin reports whether id is an admin.
func (s *Store) IsAdmin(id string) bool {
	l, norm, ok := s.lookup(id)
	return ok && lo.Contains(l.Admins, norm)
}

// IsAllowed reports whether id is an admin or an allowed user.
func (s *Store) IsAllowed(id string) bool {
	l, norm, ok := s.lookup(id)
	return ok && (lo.Contains(l.Admins, norm) || lo.Contains(l.Allowed, norm))
}

// IsAdminUser is IsAdmin for numeric Telegram ids.
func (s *Store) IsAdminUser(id int64) bool { return s.IsAdmin(strconv.FormatInt(id, 10)) }

// IsAllowedUser is IsAllowed for numeric Telegram ids.
func (s *Store) IsAllowedUser(id int64) bool { return s.IsAllowed(strconv.FormatInt(id, 10)) }

// AddAllowed puts id on the allow-list unless it is an admin or already there.
func (s *Store) AddAllowed(id string) (Result, error) {
	return s.mutate("acl.add", id, func(l *List, norm string) Result {
		switch {
		case lo.Contains(l.Admins, norm):
			return Result{Reason: ReasonAlreadyAdmin}
		case lo.Contains(l.Allowed, norm):
			return Result{Reason: ReasonAlreadyAllowed}
		}
		l.Allowed = append(l.Allowed, norm)
		return Result{OK: true}
	})
}

// RemoveAllowed takes id off the allow-list. Admins cannot be removed.
func (s *Store) RemoveAllowed(id string) (Result, error) {
	return s.mutate("acl.remove", id, func(l *List, norm string) Result {
		if lo.Contains(l.Admins, norm) {
			return Result{Reason: ReasonRemoveAdmin}
		}
		if !lo.Contains(l.Allowed, norm) {
			return Result{Reason: ReasonNotAllowed}
		}
		l.Allowed = lo.Without(l.Allowed, norm)
		return Result{OK: true}
	})
}

// AddAdmin promotes id to admin, dropping it from the allow-list.
// Bot commands never call it; it exists for bootstrapping from the CLI.
func (s *Store) AddAdmin(id string) (Result, error) {
	return s.mutate("acl.add_admin", id, func(l *List, norm string) Result {
		if lo.Contains(l.Admins, norm) {
			return Result{Reason: ReasonAlreadyAdmin}
		}
		l.Admins = append(l.Admins, norm)
		l.Allowed = lo.Without(l.Allowed, norm)
		return Result{OK: true}
	})
}

func (s *Store) mutate(event, id string, fn func(l *List, norm string) Result) (Result, error) {
	norm, err := NormalizeID(id)
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load()
	if err != nil {
		return Result{}, err
	}
	res := fn(&l, norm)
	if res.OK {
		if err := s.save(l); err != nil {
			logger.Error(context.Background(), logger.CompACL, event, slog.String("status", "fail"), slog.String("target_id", norm), logger.Err(err))
			return Result{}, err
		}
	}
	status := "ok"
	if !res.OK {
		status = "skip"
	}
	logger.Info(context.Background(), logger.CompACL, event,
		slog.String("status", status),
		slog.String("target_id", norm),
		slog.String("reason", res.Reason),
	)
	return res, nil
}

// ListAdmins returns a copy of the admin ids.
func (s *Store) ListAdmins() ([]string, error) {
	l, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]string{}, l.Admins...), nil
}

// ListAllowed returns a copy of the allowed ids.
func (s *Store) ListAllowed() ([]string, error) {
	l, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]string{}, l.Allowed...), nil
}
