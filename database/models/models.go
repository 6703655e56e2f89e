// Copyright 2025 Blink Labs Software
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

package models

import "time"

// MigrateModels contains a list of model objects that should have DB migrations applied
var MigrateModels = []any{
	&Pledge{},
	&PledgeTransition{},
}

// Pledge is the queryable index row for a pledge. The authoritative record
// lives in the blob store
type Pledge struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PledgeID        string `gorm:"size:255;uniqueIndex;not null"`
	MarkerAddress   string `gorm:"index;not null"`
	Status          string `gorm:"index;not null"`
	Denom           string `gorm:"not null"`
	Amount          string `gorm:"not null"`
	OriginatorNftID string
	LenderNftID     string
	ID              uint `gorm:"primarykey"`
}

func (Pledge) TableName() string {
	return "pledge"
}

// PledgeTransition records one accepted lifecycle operation
type PledgeTransition struct {
	CreatedAt  time.Time
	PledgeID   string `gorm:"size:255;index;not null"`
	Operation  string `gorm:"not null"`
	FromStatus string
	ToStatus   string `gorm:"not null"`
	Sender     string `gorm:"not null"`
	ID         uint   `gorm:"primarykey"`
}

func (PledgeTransition) TableName() string {
	return "pledge_transition"
}
