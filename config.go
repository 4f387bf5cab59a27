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

package normabot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpvia/normabot/memory"
	"github.com/jpvia/normabot/retrieval"
	"github.com/jpvia/normabot/router"
)

// FileConfig is the YAML shape of engine tuning. Every field is
// optional; absent fields keep their package defaults.
type FileConfig struct {
	FusionWeight        *float64 `yaml:"fusion_weight"`
	FetchDepth          *int     `yaml:"fetch_depth"`
	AnswerDepth         *int     `yaml:"answer_depth"`
	SimilarTurns        *int     `yaml:"similar_turns"`
	SimilarityCap       *float64 `yaml:"similarity_cap"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
	SimilarityWeight    *float64 `yaml:"similarity_weight"`
	RecentWindow        *int     `yaml:"recent_window"`
	SessionCap          *int     `yaml:"session_cap"`
	HorizonDays         *int     `yaml:"horizon_days"`
	Profiles            string   `yaml:"profiles"`
}

// LoadConfig reads engine tuning from a YAML file and maps it onto
// engine options. A missing file yields no options, so every knob keeps
// its default.
func LoadConfig(path string) ([]EngineOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return file.Options(), nil
}

// Options maps the parsed tuning onto engine options.
func (f *FileConfig) Options() []EngineOption {
	var opts []EngineOption

	if f.FusionWeight != nil {
		opts = append(opts, WithRetrieverOptions(retrieval.WithFusionWeight(*f.FusionWeight)))
	}
	if f.FetchDepth != nil {
		opts = append(opts, WithRetrieverOptions(
			retrieval.WithVectorFetchDepth(*f.FetchDepth),
			retrieval.WithLexicalFetchDepth(*f.FetchDepth),
		))
	}
	if f.AnswerDepth != nil {
		opts = append(opts, WithAnswerDepth(*f.AnswerDepth))
	}
	if f.SimilarTurns != nil {
		opts = append(opts, WithSimilarTurns(*f.SimilarTurns))
	}
	if f.SimilarityCap != nil {
		opts = append(opts, WithRerankerOptions(retrieval.WithSimilarityCap(*f.SimilarityCap)))
	}
	if f.ConfidenceThreshold != nil {
		opts = append(opts, WithRouterOptions(router.WithConfidenceThreshold(*f.ConfidenceThreshold)))
	}
	if f.SimilarityWeight != nil {
		opts = append(opts, WithRouterOptions(router.WithSimilarityWeight(*f.SimilarityWeight)))
	}
	if f.RecentWindow != nil {
		opts = append(opts, WithMemoryOptions(memory.WithRecentWindow(*f.RecentWindow)))
	}
	if f.SessionCap != nil {
		opts = append(opts, WithMemoryOptions(memory.WithSessionCap(*f.SessionCap)))
	}
	if f.HorizonDays != nil {
		opts = append(opts, WithMemoryOptions(
			memory.WithHorizon(time.Duration(*f.HorizonDays)*24*time.Hour)))
	}
	if f.Profiles != "" {
		opts = append(opts, WithProfilePath(f.Profiles))
	}

	return opts
}
