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

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpvia/normabot/ai"
	"github.com/jpvia/normabot/core"
)

// profileFile is the YAML shape of a specialist profile set.
type profileFile struct {
	Specialists []profileEntry `yaml:"specialists"`
}

type profileEntry struct {
	Id       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Priority int      `yaml:"priority"`
	Sources  []string `yaml:"sources"`
}

// LoadProfiles reads a specialist profile set from a YAML file. A missing
// file yields the built-in regulatory volume taxonomy.
func LoadProfiles(path string) ([]core.SpecialistProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultProfiles(), nil
		}
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing profile file: %w", err)
	}
	if len(file.Specialists) == 0 {
		return nil, ErrNoProfiles
	}

	profiles := make([]core.SpecialistProfile, 0, len(file.Specialists))
	for _, entry := range file.Specialists {
		p := core.SpecialistProfile{
			Id:       entry.Id,
			Name:     entry.Name,
			Keywords: entry.Keywords,
			Priority: entry.Priority,
			Sources:  entry.Sources,
		}
		if err := core.ValidateProfile(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// BuildPrototypes fills in missing prototype embeddings by embedding each
// profile's name and keywords. Profiles that already carry a prototype
// (for example from a precomputed file) are left alone.
func BuildPrototypes(ctx context.Context, embedder ai.Embedder, profiles []core.SpecialistProfile) error {
	var texts []string
	var missing []int
	for i := range profiles {
		if len(profiles[i].Prototype) > 0 {
			continue
		}
		texts = append(texts, profiles[i].Name+": "+strings.Join(profiles[i].Keywords, ", "))
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding specialist prototypes: %w", err)
	}
	if len(vectors) != len(missing) {
		return fmt.Errorf("embedding specialist prototypes: got %d vectors for %d profiles", len(vectors), len(missing))
	}

	for n, i := range missing {
		profiles[i].Prototype = core.NormalizeVector(vectors[n])
	}
	return nil
}

// DefaultProfiles is the built-in taxonomy: one specialist per volume of
// the regulation, scoped to that volume's chunks.
func DefaultProfiles() []core.SpecialistProfile {
	return []core.SpecialistProfile{
		{
			Id:       "tomo-1",
			Name:     "Sistema de Evaluación y Tramitación de Permisos",
			Keywords: []string{"evaluación", "tramitación", "solicitud", "permiso único", "oficina de gerencia"},
			Priority: 1,
			Sources:  []string{"tomo-1"},
		},
		{
			Id:       "tomo-2",
			Name:     "Disposiciones Generales",
			Keywords: []string{"disposiciones", "definiciones", "aplicabilidad", "vigencia"},
			Priority: 2,
			Sources:  []string{"tomo-2"},
		},
		{
			Id:       "tomo-3",
			Name:     "Permisos para Desarrollo y Negocios",
			Keywords: []string{"permiso", "desarrollo", "negocio", "uso comercial", "construcción"},
			Priority: 3,
			Sources:  []string{"tomo-3"},
		},
		{
			Id:       "tomo-4",
			Name:     "Licencias y Certificaciones",
			Keywords: []string{"licencia", "certificación", "inspector", "profesional autorizado"},
			Priority: 4,
			Sources:  []string{"tomo-4"},
		},
		{
			Id:       "tomo-5",
			Name:     "Urbanización y Lotificación",
			Keywords: []string{"urbanización", "lotificación", "segregación", "subdivisión", "solar"},
			Priority: 5,
			Sources:  []string{"tomo-5"},
		},
		{
			Id:       "tomo-6",
			Name:     "Distritos de Calificación",
			Keywords: []string{"distrito", "calificación", "residencial", "comercial", "industrial", "zonificación"},
			Priority: 6,
			Sources:  []string{"tomo-6"},
		},
		{
			Id:       "tomo-7",
			Name:     "Procesos",
			Keywords: []string{"proceso", "procedimiento", "vista pública", "notificación", "adjudicación"},
			Priority: 7,
			Sources:  []string{"tomo-7"},
		},
		{
			Id:       "tomo-8",
			Name:     "Edificabilidad",
			Keywords: []string{"edificabilidad", "altura", "densidad", "retiro", "cabida", "estacionamiento"},
			Priority: 8,
			Sources:  []string{"tomo-8"},
		},
		{
			Id:       "tomo-9",
			Name:     "Infraestructura y Ambiente",
			Keywords: []string{"infraestructura", "ambiente", "zona inundable", "pluvial", "acueducto", "energía"},
			Priority: 9,
			Sources:  []string{"tomo-9"},
		},
		{
			Id:       "tomo-10",
			Name:     "Conservación Histórica",
			Keywords: []string{"conservación", "histórico", "patrimonio", "zona histórica", "monumento"},
			Priority: 10,
			Sources:  []string{"tomo-10"},
		},
		{
			Id:       "tomo-11",
			Name:     "Querellas",
			Keywords: []string{"querella", "multa", "infracción", "violación", "cese y desista"},
			Priority: 11,
			Sources:  []string{"tomo-11"},
		},
	}
}
