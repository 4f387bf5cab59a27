// Copyright 2025 JPVia Labs
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

package router

import "errors"

var (
	// ErrInvalidThreshold indicates a confidence threshold outside [0,1].
	ErrInvalidThreshold = errors.New("confidence threshold must be in [0,1]")

	// ErrInvalidWeight indicates a similarity weight outside [0,1].
	ErrInvalidWeight = errors.New("similarity weight must be in [0,1]")

	// ErrNoProfiles indicates an empty specialist profile set.
	ErrNoProfiles = errors.New("profile set cannot be empty")

	// ErrUnknownSpecialist indicates a specialist id with no loaded profile.
	ErrUnknownSpecialist = errors.New("unknown specialist id")
)
