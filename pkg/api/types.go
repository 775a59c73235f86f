// pkg/api/types.go
package api

import (
	"github.com/etoile-yachts/MediaValidator/internal/config"
	"github.com/etoile-yachts/MediaValidator/internal/engine"
	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// Re-export types from internal packages for the public API
type Config = config.Config
type EngineConfig = config.EngineConfig
type ProbeConfig = config.ProbeConfig
type ExportConfig = config.ExportConfig

type MediaType = media.Type
type Reference = media.Reference
type Outcome = media.Outcome
type ValidationReport = media.ValidationReport
type RepairReport = media.RepairReport
type RepairAction = media.RepairAction
type RepairKind = media.RepairKind

type RunOptions = engine.Options
type Progress = engine.Progress
type Status = engine.Status

const (
	StatusIdle      = engine.StatusIdle
	StatusRunning   = engine.StatusRunning
	StatusPaused    = engine.StatusPaused
	StatusCompleted = engine.StatusCompleted
	StatusFailed    = engine.StatusFailed
)

const (
	TypeImage    = media.TypeImage
	TypeVideo    = media.TypeVideo
	TypeAudio    = media.TypeAudio
	TypeDocument = media.TypeDocument
	TypeUnknown  = media.TypeUnknown
)
