package server

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/zeusync/posebridge/internal/core/bones"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/transform"
)

// BoneMethod selects how a bones request reaches the rig.
type BoneMethod string

const (
	// BoneMethodPose sends a synthetic pose document through the pose backend.
	BoneMethodPose BoneMethod = "pose"
	// BoneMethodDirect hands the bones to the interpolation engine.
	BoneMethodDirect BoneMethod = "direct"
)

func ParseBoneMethod(raw string) (BoneMethod, error) {
	switch BoneMethod(strings.ToLower(raw)) {
	case BoneMethodPose:
		return BoneMethodPose, nil
	case BoneMethodDirect:
		return BoneMethodDirect, nil
	default:
		return "", errors.Wrapf(ErrInvalidBoneMethod, "%q", raw)
	}
}

type statusResponse struct {
	Status           string    `json:"status"`
	Version          string    `json:"version"`
	BackendAvailable bool      `json:"backendAvailable"`
	Timestamp        time.Time `json:"timestamp"`
	CharacterCount   int       `json:"characterCount"`
	Subscribers      int       `json:"subscribers"`
}

type characterResponse struct {
	ObjectID    uint64          `json:"objectId"`
	Name        string          `json:"name"`
	Position    *transform.Vec3 `json:"position"`
	Rotation    *transform.Quat `json:"rotation"`
	Scale       *transform.Vec3 `json:"scale"`
	CurrentPose json.RawMessage `json:"currentPose"`
	IsActive    bool            `json:"isActive"`
	ModelID     uint32          `json:"modelId"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

type successResponse struct {
	Success  bool   `json:"success"`
	ObjectID uint64 `json:"objectId"`
}

type bonesResponse struct {
	Success      bool       `json:"success"`
	ObjectID     uint64     `json:"objectId"`
	BonesUpdated int        `json:"bonesUpdated"`
	Method       BoneMethod `json:"method"`
}

type transformResponse struct {
	ObjectID uint64          `json:"objectId"`
	Position *transform.Vec3 `json:"position"`
	Rotation *transform.Quat `json:"rotation"`
	Scale    *transform.Vec3 `json:"scale"`
}

type transformRequest struct {
	Position *transform.Vec3 `json:"position"`
	Rotation *transform.Quat `json:"rotation"`
	Scale    *transform.Vec3 `json:"scale"`
	Additive bool            `json:"additive"`
}

// characterList renders the registry snapshot ordered by id.
func characterList(entities []registry.TrackedEntity) []characterResponse {
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	out := make([]characterResponse, 0, len(entities))
	for _, e := range entities {
		var pose json.RawMessage
		if e.HasPose() && json.Valid([]byte(e.PoseDocument)) {
			pose = json.RawMessage(e.PoseDocument)
		}
		out = append(out, characterResponse{
			ObjectID:    e.ID,
			Name:        e.Name,
			Position:    e.Position,
			Rotation:    e.Rotation,
			Scale:       e.Scale,
			CurrentPose: pose,
			IsActive:    true,
			ModelID:     e.ModelID,
			LastUpdated: e.LastSeen,
		})
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:           "running",
		Version:          s.config.Version,
		BackendAvailable: s.backend.Available(),
		Timestamp:        time.Now().UTC(),
		CharacterCount:   s.entities.Count(),
		Subscribers:      s.broadcaster.Count(),
	})
	return nil
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) error {
	raw, err := json.Marshal(characterList(s.entities.List()))
	if err != nil {
		return errors.Wrap(err, "encode characters")
	}
	writeTagged(w, r, raw)
	return nil
}

// lookup resolves the path id against the registry.
func (s *Server) lookup(r *http.Request) (registry.TrackedEntity, error) {
	id, err := entityID(r)
	if err != nil {
		return registry.TrackedEntity{}, err
	}
	entity, err := s.entities.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		return registry.TrackedEntity{}, notFound("unknown character %d", id)
	}
	return entity, err
}

// onTick runs a pose backend call on the tick context within the request timeout.
func (s *Server) onTick(r *http.Request, fn func()) error {
	if !s.backend.Available() {
		return backendUnavailable(nil, "pose backend not available")
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()
	if err := s.exec.Do(ctx, fn); err != nil {
		return backendUnavailable(err, "pose backend did not respond")
	}
	return nil
}

func (s *Server) handleGetPose(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}

	var (
		doc string
		ok  bool
	)
	if err := s.onTick(r, func() { doc, ok = s.backend.GetPose(entity.ID) }); err != nil {
		return err
	}
	if !ok || doc == "" {
		return notFound("no pose for character %d", entity.ID)
	}
	writeTagged(w, r, []byte(doc))
	return nil
}

func (s *Server) handleSetPose(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return invalidPayload(nil, "pose document must be a JSON object")
	}

	var ok bool
	if err := s.onTick(r, func() { ok = s.backend.SetPose(entity.ID, string(trimmed)) }); err != nil {
		return err
	}
	if !ok {
		return backendUnavailable(nil, "pose backend rejected pose for character %d", entity.ID)
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, ObjectID: entity.ID})
	return nil
}

func (s *Server) handleSetBones(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}

	method := s.defaultMethod
	if raw := r.URL.Query().Get("method"); raw != "" {
		if method, err = ParseBoneMethod(raw); err != nil {
			return invalidPayload(err, "unknown method %q", raw)
		}
	}

	var boneMap transform.BoneMap
	if err := s.decodeBody(w, r, &boneMap); err != nil {
		return err
	}
	if len(boneMap) == 0 {
		return invalidPayload(nil, "bones map is empty")
	}

	switch method {
	case BoneMethodDirect:
		if err := s.bones.SetTargets(entity.ID, boneMap); err != nil {
			if errors.Is(err, bones.ErrEmptyTargets) {
				return invalidPayload(err, "bones map is empty")
			}
			return err
		}
	default:
		doc, err := json.Marshal(transform.PoseFromBones(boneMap))
		if err != nil {
			return errors.Wrap(err, "encode synthetic pose")
		}
		var ok bool
		if err := s.onTick(r, func() { ok = s.backend.SetPose(entity.ID, string(doc)) }); err != nil {
			return err
		}
		if !ok {
			return backendUnavailable(nil, "pose backend rejected bones for character %d", entity.ID)
		}
	}

	writeJSON(w, http.StatusOK, bonesResponse{
		Success:      true,
		ObjectID:     entity.ID,
		BonesUpdated: len(boneMap),
		Method:       method,
	})
	return nil
}

func (s *Server) handleClearBones(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}
	s.bones.Clear(entity.ID)
	writeJSON(w, http.StatusOK, successResponse{Success: true, ObjectID: entity.ID})
	return nil
}

func (s *Server) handleGetTransform(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}

	var (
		t  transform.Transform
		ok bool
	)
	if err := s.onTick(r, func() { t, ok = s.backend.GetTransform(entity.ID) }); err != nil {
		return err
	}
	if !ok {
		return notFound("no transform for character %d", entity.ID)
	}
	writeJSON(w, http.StatusOK, transformResponse{
		ObjectID: entity.ID,
		Position: t.Position,
		Rotation: t.Rotation,
		Scale:    t.Scale,
	})
	return nil
}

func (s *Server) handleSetTransform(w http.ResponseWriter, r *http.Request) error {
	entity, err := s.lookup(r)
	if err != nil {
		return err
	}

	var req transformRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		return err
	}
	t := transform.Transform{Position: req.Position, Rotation: req.Rotation, Scale: req.Scale}
	if t.Empty() {
		return invalidPayload(nil, "transform carries no position, rotation or scale")
	}

	var ok bool
	if err := s.onTick(r, func() { ok = s.backend.SetTransform(entity.ID, t, req.Additive) }); err != nil {
		return err
	}
	if !ok {
		return backendUnavailable(nil, "pose backend rejected transform for character %d", entity.ID)
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, ObjectID: entity.ID})
	return nil
}
