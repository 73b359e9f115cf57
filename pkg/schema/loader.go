// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Loader decodes a binary schema file produced offline (outside this
// repo's scope, see spec §6) into a *Schema. Production decoding of the
// real binary format is an external collaborator; this package only
// needs the interface and a JSON-fixture implementation for tests and
// for operators who have already converted their schema to JSON.
type Loader interface {
	Load(path string) (*Schema, error)
}

// JSONLoader reads a Schema serialized as plain JSON. It exists so the
// generator and its tests have something concrete to run against without
// depending on the real binary schema decoder.
type JSONLoader struct{}

func (JSONLoader) Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var doc struct {
		Types  []TypeInfo            `json:"types"`
		Groups []*GroupInfo          `json:"groups"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: decode %s: %w", path, err)
	}
	s := &Schema{Types: doc.Types, Groups: make(map[GroupId]*GroupInfo, len(doc.Groups))}
	for _, g := range doc.Groups {
		s.Groups[g.ID] = g
	}
	return s, nil
}
