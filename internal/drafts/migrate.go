package drafts

import (
	"encoding/json"
	"errors"

	"github.com/printforge/quickorder-backend/internal/pipeline"
)

// legacyDraft is the version-0 blob layout. It predates per-file lock
// flags: locked files were listed by id instead.
type legacyDraft struct {
	Version         int                                     `json:"version"`
	Step            pipeline.Step                           `json:"step"`
	Uploads         []pipeline.Upload                       `json:"uploads"`
	Settings        map[string]pipeline.FileSettings        `json:"settings"`
	Orientation     map[string]pipeline.OrientationSnapshot `json:"orientation"`
	OrientedFileIDs []string                                `json:"orientedFileIds"`
	Metrics         map[string]pipeline.FileMetrics         `json:"metrics"`
}

// decodeDraft parses a stored blob, upgrading legacy layouts in place.
func decodeDraft(blob []byte) (*pipeline.Draft, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(blob, &probe); err != nil {
		return nil, err
	}

	if probe.Version == 0 {
		var legacy legacyDraft
		if err := json.Unmarshal(blob, &legacy); err != nil {
			return nil, err
		}
		return migrateLegacy(legacy)
	}

	var draft pipeline.Draft
	if err := json.Unmarshal(blob, &draft); err != nil {
		return nil, err
	}
	if len(draft.Uploads) == 0 {
		return nil, errors.New("draft has no files")
	}
	return &draft, nil
}

// migrateLegacy rewrites a v0 draft into the current layout. Only ids
// that still name an upload count as locked; metrics for anything else
// are dropped so the lock invariant holds from the first render.
func migrateLegacy(legacy legacyDraft) (*pipeline.Draft, error) {
	if len(legacy.Uploads) == 0 {
		return nil, errors.New("legacy draft has no files")
	}

	known := make(map[string]struct{}, len(legacy.Uploads))
	for _, u := range legacy.Uploads {
		known[u.ID] = struct{}{}
	}

	locked := make(map[string]bool, len(legacy.OrientedFileIDs))
	for _, id := range legacy.OrientedFileIDs {
		if _, ok := known[id]; ok {
			locked[id] = true
		}
	}

	metrics := make(map[string]pipeline.FileMetrics, len(legacy.Metrics))
	for id, m := range legacy.Metrics {
		if locked[id] {
			metrics[id] = m
		}
	}

	draft := &pipeline.Draft{
		Version:     1,
		Step:        legacy.Step,
		Uploads:     legacy.Uploads,
		Settings:    legacy.Settings,
		Orientation: legacy.Orientation,
		Locked:      locked,
		Metrics:     metrics,
	}
	if draft.Settings == nil {
		draft.Settings = map[string]pipeline.FileSettings{}
	}
	if draft.Orientation == nil {
		draft.Orientation = map[string]pipeline.OrientationSnapshot{}
	}
	return draft, nil
}
