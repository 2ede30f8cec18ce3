package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/spf13/afero"
)

var (
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrScheduleNotFound = errors.New("schedule not found")
)

// LoadDefinitions reads and validates the schedules file. A missing file
// yields no schedules. Every invalid entry is reported; none are loaded then.
func LoadDefinitions(fsys afero.Fs, path string) ([]Definition, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedules file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var parsed file
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode schedules file: %w", err)
	}
	if err := Validate(parsed.Schedules); err != nil {
		return nil, err
	}
	return parsed.Schedules, nil
}

// Validate checks ids, names and triggers of every definition.
func Validate(defs []Definition) error {
	var errs []error
	seen := make(map[string]struct{}, len(defs))
	for index, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("%w: entry %d: id is required", ErrInvalidSchedule, index))
			continue
		}
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%w: %s: duplicate id", ErrInvalidSchedule, id))
			continue
		}
		seen[id] = struct{}{}

		hasCron := strings.TrimSpace(def.Cron) != ""
		hasAt := def.At != nil && !def.At.IsZero()
		switch {
		case hasCron && hasAt:
			errs = append(errs, fmt.Errorf("%w: %s: cron and at are mutually exclusive", ErrInvalidSchedule, id))
		case !hasCron && !hasAt:
			errs = append(errs, fmt.Errorf("%w: %s: one of cron or at is required", ErrInvalidSchedule, id))
		case hasCron && (len(strings.Fields(def.Cron)) != 5 || !gronx.IsValid(def.Cron)):
			errs = append(errs, fmt.Errorf("%w: %s: invalid cron expression %q, expected minute hour day-of-month month day-of-week", ErrInvalidSchedule, id, def.Cron))
		}
	}
	return errors.Join(errs...)
}
