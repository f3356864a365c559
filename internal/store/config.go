// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentberlin/outlinks"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsKey = "settings"

// LoadSettings returns the persisted settings, or DefaultSettings when none
// were saved yet.
func (s *Store) LoadSettings(ctx context.Context) (outlinks.Settings, error) {
	var row Setting
	result := s.db.WithContext(ctx).Where("`key` = ?", settingsKey).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return outlinks.DefaultSettings(), nil
	}
	if result.Error != nil {
		return outlinks.Settings{}, fmt.Errorf("failed to get settings: %v", result.Error)
	}

	settings := outlinks.DefaultSettings()
	if err := json.Unmarshal([]byte(row.Value), &settings); err != nil {
		return outlinks.Settings{}, fmt.Errorf("failed to decode settings: %v", err)
	}
	return settings, nil
}

// SaveSettings validates and persists settings.
func (s *Store) SaveSettings(ctx context.Context, settings outlinks.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %v", err)
	}
	row := Setting{Key: settingsKey, Value: string(data)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save settings: %v", err)
	}
	return nil
}
