package transform

// Vec3 is a position or scale in model space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat is a rotation quaternion. Values produced by this package are unit length.
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Identity returns the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// Transform carries independently optional channels. A nil channel means
// "leave unmodified" on writes and "not reported" on reads.
type Transform struct {
	Position *Vec3 `json:"position,omitempty"`
	Rotation *Quat `json:"rotation,omitempty"`
	Scale    *Vec3 `json:"scale,omitempty"`
}

// Empty reports whether no channel is set.
func (t Transform) Empty() bool {
	return t.Position == nil && t.Rotation == nil && t.Scale == nil
}

// Clone returns a copy that shares no pointers with t.
func (t Transform) Clone() Transform {
	var out Transform
	if t.Position != nil {
		p := *t.Position
		out.Position = &p
	}
	if t.Rotation != nil {
		r := *t.Rotation
		out.Rotation = &r
	}
	if t.Scale != nil {
		s := *t.Scale
		out.Scale = &s
	}
	return out
}

// BoneMap maps a bone name to its transform. Bone names are unique per entity.
type BoneMap map[string]Transform

// Clone deep copies the map.
func (m BoneMap) Clone() BoneMap {
	if m == nil {
		return nil
	}
	out := make(BoneMap, len(m))
	for name, t := range m {
		out[name] = t.Clone()
	}
	return out
}

// PoseDocument is the whole-body pose understood by the pose backend.
type PoseDocument struct {
	Bones BoneMap `json:"bones"`
}

// PoseFromBones wraps a partial bone map into a pose document holding only those bones.
func PoseFromBones(bones BoneMap) PoseDocument {
	return PoseDocument{Bones: bones.Clone()}
}

func Vec3Ptr(x, y, z float32) *Vec3 {
	return &Vec3{X: x, Y: y, Z: z}
}

func QuatPtr(q Quat) *Quat {
	return &q
}
