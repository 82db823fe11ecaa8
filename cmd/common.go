/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valpere/gradefactory/internal/backend"
	"github.com/valpere/gradefactory/internal/config"
	"github.com/valpere/gradefactory/internal/store"
)

// roleBackends holds the backends chosen for the three roles.
type roleBackends struct {
	graderA, graderB, moderator backend.Backend
}

// buildBackends constructs the backends for the three roles. Empty names
// for grader B and the moderator fall back to grader A's backend.
func buildBackends(cfg *config.Config, nameA, nameB, nameModerator string) (roleBackends, error) {
	if nameA == "" {
		nameA = cfg.ModelBackend
	}
	if nameB == "" {
		nameB = nameA
	}
	if nameModerator == "" {
		nameModerator = nameA
	}

	var rb roleBackends
	for _, slot := range []struct {
		name string
		dst  *backend.Backend
	}{
		{nameA, &rb.graderA},
		{nameB, &rb.graderB},
		{nameModerator, &rb.moderator},
	} {
		b, err := backend.New(slot.name, cfg.BackendConfig(slot.name))
		if err != nil {
			return roleBackends{}, err
		}
		*slot.dst = b
	}
	return rb, nil
}

// openHistory opens the grading history database, creating its folder.
func openHistory(dbPath string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
